package rest

const (
	RouteLogin = "/login"
	RouteShare = "/share"

	// ops
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

const (
	StatusOK             = "ok"
	StatusFail           = "fail"
	StatusInternalError  = "internal server error"
	StatusUploadFailed   = "error uploading image"
	StatusMetadataFailed = "error saving share"
)
