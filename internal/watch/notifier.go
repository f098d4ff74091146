package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/pipeline"
)

const (
	// DefaultSubject receives one message per completed build.
	DefaultSubject = "docsite.builds"
	// DefaultKVBucket caches document fingerprints between rebuilds.
	DefaultKVBucket = "docsite-fingerprints"
)

// RetryPolicy controls redelivery attempts for JetStream publishes.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy retries three times with exponential backoff from 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Second}
}

// Notifier publishes build reports to NATS JetStream and maintains a KV
// fingerprint cache so unchanged trees can skip rebuilds.
type Notifier struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	subject string
	retry   RetryPolicy
}

// NewNotifier connects to NATS and ensures the fingerprint bucket exists.
func NewNotifier(url, subject, bucket string) (*Notifier, error) {
	if url == "" {
		return nil, derrors.New(derrors.CategoryWatch, derrors.SeverityFatal, "NATS URL is required")
	}
	if subject == "" {
		subject = DefaultSubject
	}
	if bucket == "" {
		bucket = DefaultKVBucket
	}

	conn, err := nats.Connect(url, nats.Name("docsite-watch"))
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "failed to connect to NATS")
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "failed to create JetStream context")
	}

	n := &Notifier{
		conn:    conn,
		js:      js,
		subject: subject,
		retry:   DefaultRetryPolicy(),
	}
	if err := n.initBucket(bucket); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("NATS notifier initialized",
		slog.String("url", url),
		slog.String("subject", subject),
		slog.String("kv_bucket", bucket))
	return n, nil
}

func (n *Notifier) initBucket(bucket string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := n.js.KeyValue(ctx, bucket)
	if err == nil {
		n.kv = kv
		return nil
	}

	kv, err = n.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Document fingerprints for rebuild skipping",
		History:     1,
	})
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryWatch, "failed to create fingerprint bucket")
	}
	n.kv = kv
	return nil
}

// PublishReport emits the serialized build report on the configured subject.
func (n *Notifier) PublishReport(ctx context.Context, report *pipeline.Report) error {
	data, err := json.Marshal(report.Serializable())
	if err != nil {
		return derrors.InternalError("failed to marshal build report", err)
	}
	err = retryPublish(ctx, n.retry, func(attemptCtx context.Context) error {
		pctx, cancel := context.WithTimeout(attemptCtx, 5*time.Second)
		defer cancel()
		_, perr := n.js.Publish(pctx, n.subject, data)
		return perr
	})
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryWatch, "failed to publish build report")
	}
	slog.Debug("Published build report",
		logfields.RunID(report.RunID),
		slog.String("subject", n.subject),
		slog.String("outcome", string(report.Outcome)))
	return nil
}

// CachedFingerprints returns the fingerprint map stored for this manifest,
// or nil when nothing is cached yet.
func (n *Notifier) CachedFingerprints(ctx context.Context, manifestPath string) (map[string]string, error) {
	gctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	entry, err := n.kv.Get(gctx, cacheKey(manifestPath))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "failed to read fingerprint cache")
	}
	var prints map[string]string
	if err := json.Unmarshal(entry.Value(), &prints); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "corrupt fingerprint cache entry")
	}
	return prints, nil
}

// StoreFingerprints replaces the cached fingerprint map for this manifest.
func (n *Notifier) StoreFingerprints(ctx context.Context, manifestPath string, prints map[string]string) error {
	data, err := json.Marshal(prints)
	if err != nil {
		return derrors.InternalError("failed to marshal fingerprints", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := n.kv.Put(pctx, cacheKey(manifestPath), data); err != nil {
		return derrors.WrapError(err, derrors.CategoryWatch, "failed to store fingerprint cache")
	}
	return nil
}

// Close shuts down the NATS connection.
func (n *Notifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// cacheKey derives a KV key from the manifest identity. Paths themselves can
// contain characters that are invalid in KV keys, so they are hashed.
func cacheKey(manifestPath string) string {
	sum := sha256.Sum256([]byte(manifestPath))
	return "tree." + hex.EncodeToString(sum[:8])
}

// retryPublish invokes publish until it succeeds or attempts run out, with
// exponential backoff between attempts.
func retryPublish(ctx context.Context, policy RetryPolicy, publish func(context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = publish(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == policy.MaxAttempts {
			break
		}
		backoff := policy.Backoff * time.Duration(1<<uint(attempt-1))
		slog.Debug("Retrying publish",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			logfields.Error(lastErr))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
