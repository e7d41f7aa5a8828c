// Package blob holds what every object storage driver shares.
package blob

import (
	"fmt"
)

const ACLPublicRead = "public-read"

// PublicURL is the only URL shape ever written into share documents:
// https://{bucket}.{endpoint}/{key}
func PublicURL(bucket, endpointHost, key string) string {
	return fmt.Sprintf("https://%s.%s/%s", bucket, endpointHost, key)
}
