// Package registry sequences the metadata store, version sequencer and
// artifact transfer into the model operations exposed by the CLI and the
// HTTP API.
package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"sarinfer/internal/models"
	"sarinfer/internal/storage"
	"sarinfer/internal/transfer"
	"sarinfer/internal/utils"
	"sarinfer/internal/versioning"
)

// Service implements the model operations.
type Service struct {
	store         storage.MetadataStore
	sequencer     versioning.Sequencer
	transfer      *transfer.Manager
	defaultBucket string
	// localRoot confines backup and restore folders when set.
	localRoot string
	logger    *utils.Logger
}

// NewService creates a service. defaultBucket is used when a backup or
// restore request names no bucket.
func NewService(store storage.MetadataStore, sequencer versioning.Sequencer, mgr *transfer.Manager, defaultBucket string) *Service {
	return &Service{
		store:         store,
		sequencer:     sequencer,
		transfer:      mgr,
		defaultBucket: defaultBucket,
		logger:        utils.NewLogger("registry"),
	}
}

// WithLocalRoot returns a copy of s whose backups and restores only touch
// folders under root. Relative paths resolve against root. An empty root
// lifts the restriction.
func (s *Service) WithLocalRoot(root string) *Service {
	c := *s
	c.localRoot = ""
	if root != "" {
		c.localRoot = filepath.Clean(root)
	}
	return &c
}

// folder picks the requested local path, falling back to the record's
// location, and checks it against the local root.
func (s *Service) folder(requested string, m *models.ModelMetadata) (string, error) {
	p := requested
	if p == "" {
		p = m.Location
	}
	if s.localRoot == "" {
		return p, nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.localRoot, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(s.localRoot, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, p)
	}
	return p, nil
}

// RegisterRequest describes a model to register. ModelID and Version are
// optional.
type RegisterRequest struct {
	ModelID   string  `json:"model_id,omitempty"`
	ModelName string  `json:"model_name"`
	Version   string  `json:"version,omitempty"`
	Size      float64 `json:"size"`
	Location  string  `json:"location"`
}

// Register validates and stores a new record, assigning the next version
// for the model name when none is given. created is false when the model_id
// is already taken; the existing record is not touched.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.ModelMetadata, bool, error) {
	m, err := models.NewModelMetadata(models.NewModelParams{
		ModelID:   req.ModelID,
		ModelName: req.ModelName,
		Version:   req.Version,
		Size:      req.Size,
		Location:  req.Location,
	})
	if err != nil {
		return nil, false, err
	}

	if m.Version == "" {
		n, err := s.sequencer.Next(ctx, m.ModelName)
		if err != nil {
			return nil, false, fmt.Errorf("failed to assign version: %w", err)
		}
		m.Version = versioning.Format(n)
	}

	_, created, err := s.store.Add(ctx, m)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return nil, false, nil
	}
	s.logger.Info("Model registered", "model_id", m.ModelID, "model_name", m.ModelName, "version", m.Version)
	return m, true, nil
}

// List returns every record.
func (s *Service) List(ctx context.Context) ([]*models.ModelMetadata, error) {
	return s.store.List(ctx)
}

// Get returns the record with the given id or storage.ErrModelNotFound.
func (s *Service) Get(ctx context.Context, modelID string) (*models.ModelMetadata, error) {
	m, found, err := s.store.Get(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", storage.ErrModelNotFound, modelID)
	}
	return m, nil
}

// Update applies a partial update and returns the updated record.
func (s *Service) Update(ctx context.Context, modelID string, update models.MetadataUpdate) (*models.ModelMetadata, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	n, err := s.store.Update(ctx, modelID, update)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// A store may count an identical rewrite as unmodified, so only a
		// missing record is reported as not found.
		s.logger.Debug("Update modified no record", "model_id", modelID)
	}
	return s.Get(ctx, modelID)
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, modelID string) error {
	n, err := s.store.Delete(ctx, modelID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrModelNotFound, modelID)
	}
	s.logger.Info("Model deleted", "model_id", modelID)
	return nil
}

// ModelRef names a model by id or, failing that, by name. A name resolves
// to the most recently created record with that name.
type ModelRef struct {
	ModelID   string `json:"model_id,omitempty"`
	ModelName string `json:"model_name,omitempty"`
}

func (r ModelRef) String() string {
	if r.ModelID != "" {
		return r.ModelID
	}
	return r.ModelName
}

// Resolve finds the record a reference points to.
func (s *Service) Resolve(ctx context.Context, ref ModelRef) (*models.ModelMetadata, error) {
	switch {
	case ref.ModelID != "":
		return s.Get(ctx, ref.ModelID)
	case ref.ModelName != "":
		found, err := s.store.FindByName(ctx, ref.ModelName)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("%w: %s", storage.ErrModelNotFound, ref.ModelName)
		}
		return found[0], nil
	}
	return nil, ErrMissingReference
}

// Load is a placeholder: model loading is not performed, the request is only
// logged.
func (s *Service) Load(ctx context.Context, modelName string) error {
	if strings.TrimSpace(modelName) == "" {
		return ErrMissingReference
	}
	s.logger.Info("Model is being loaded into memory", "model_name", modelName)
	return nil
}

// DefaultPrefix is the key prefix a backup uses when none is given. It ends
// in "/" so v1 never lists the objects of v10.
func DefaultPrefix(m *models.ModelMetadata) string {
	return fmt.Sprintf("models/%s/%s/", m.ModelName, m.Version)
}

// BackupLocation renders the s3:// URL stored in backup_location.
func BackupLocation(bucket, prefix string) string {
	return "s3://" + bucket + "/" + prefix
}

// ParseBackupLocation splits an s3:// URL into bucket and prefix.
func ParseBackupLocation(loc string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(loc, "s3://")
	if !found || rest == "" {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, prefix, true
}
