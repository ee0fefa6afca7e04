package convocations

import (
	"context"
	"time"

	"github.com/convocations/convocations/internal/catalog"
	"github.com/convocations/convocations/internal/secret"
)

// SecretBackend stores and resolves the LLM credential. Satisfied by
// *internal/secret.Store; replaceable via WithSecretStore for tests or
// an alternate credential store.
type SecretBackend interface {
	Set(label, plaintext string) (*secret.Handle, error)
	Get(handle *secret.Handle) (string, bool, error)
	Clear(handle *secret.Handle) error
}

// ModelCatalog resolves an OpenRouter model identifier (or "auto") to
// a concrete catalog entry. Satisfied by *internal/catalog.Resolver;
// replaceable via WithModelCatalog for tests or an alternate catalog
// source.
type ModelCatalog interface {
	ResolveModel(ctx context.Context, requested string, freeOnly bool) (catalog.Entry, error)
}

// Clock supplies the current time. The pipeline's window resolution
// resolves "N weeks ago" relative to Clock.Now, so tests can pin it.
type Clock interface {
	Now() time.Time
}

// ProgressSink receives every event a submitted job emits, in
// addition to the channel returned by App.Submit. Register one with
// WithProgressSink to log or forward progress without holding your
// own reference to the returned channel.
type ProgressSink interface {
	OnProgress(ProgressEvent)
}
