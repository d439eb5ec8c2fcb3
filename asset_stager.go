package onboarding

import "context"

// AssetMeta describes an upload to the asset store.
type AssetMeta struct {
	Category    AssetCategory
	FileName    string
	ContentType string
}

// AssetRef points at a stored object.
type AssetRef struct {
	Key      string
	Category AssetCategory
}

// AssetStager uploads and removes binary attachments in the external
// asset store. Each Stage call yields a fresh key even for identical
// bytes; there is no dedup. Unstage exists for compensation and must
// be treated as best-effort by callers: its error is logged, never
// re-raised over the failure that triggered the rollback.
type AssetStager interface {
	Stage(ctx context.Context, content []byte, meta AssetMeta) (AssetRef, error)
	Unstage(ctx context.Context, key string) error
}

// noopStager satisfies AssetStager for deployments without an asset
// store; staging anything fails loudly.
type noopStager struct{}

func (noopStager) Stage(context.Context, []byte, AssetMeta) (AssetRef, error) {
	return AssetRef{}, ErrAssetStoreFailure
}

func (noopStager) Unstage(context.Context, string) error {
	return nil
}
