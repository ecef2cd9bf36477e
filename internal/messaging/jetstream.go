package messaging

import (
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

// EnsureBucket returns the named key-value bucket, creating it when missing.
// Entries expire after ttl.
func EnsureBucket(js nats.JetStreamContext, bucket string, ttl time.Duration) (nats.KeyValue, error) {
	kv, err := js.KeyValue(bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, nats.ErrBucketNotFound) {
		return nil, err
	}
	return js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:   bucket,
		TTL:      ttl,
		History:  1,
		Storage:  nats.MemoryStorage,
		Replicas: 1,
	})
}
