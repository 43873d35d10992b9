package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// LoadStatus is the load state of a model version.
type LoadStatus string

const (
	LoadStatusUnloaded LoadStatus = "unloaded"
	LoadStatusLoading  LoadStatus = "loading"
	LoadStatusLoaded   LoadStatus = "loaded"
	LoadStatusFailed   LoadStatus = "failed"
)

// Valid reports whether s is a known load status.
func (s LoadStatus) Valid() bool {
	switch s {
	case LoadStatusUnloaded, LoadStatusLoading, LoadStatusLoaded, LoadStatusFailed:
		return true
	}
	return false
}

// BackupStatus records how far the last backup of a model got. Transfer and
// metadata update are separate steps; the status is persisted between them
// so an interrupted backup is visible and can be re-run.
type BackupStatus string

const (
	BackupStatusNone             BackupStatus = ""
	BackupStatusTransferPending  BackupStatus = "transfer_pending"
	BackupStatusTransferComplete BackupStatus = "transfer_complete"
	BackupStatusTransferFailed   BackupStatus = "transfer_failed"
	BackupStatusRecorded         BackupStatus = "recorded"
)

// Valid reports whether s is a known backup status. The empty status of a
// record never backed up is valid.
func (s BackupStatus) Valid() bool {
	switch s {
	case BackupStatusNone, BackupStatusTransferPending, BackupStatusTransferComplete,
		BackupStatusTransferFailed, BackupStatusRecorded:
		return true
	}
	return false
}

// ErrValidation is matched by every metadata validation failure.
var ErrValidation = errors.New("invalid model metadata")

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model_name, size, and location are mandatory fields (invalid: %s)", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ModelMetadata describes one model version.
type ModelMetadata struct {
	ModelID        string       `bson:"model_id" db:"model_id" json:"model_id"`
	ModelName      string       `bson:"model_name" db:"model_name" json:"model_name" validate:"required"`
	Version        string       `bson:"version" db:"version" json:"version"`
	Size           float64      `bson:"size" db:"size" json:"size" validate:"required"`
	Location       string       `bson:"location" db:"location" json:"location" validate:"required"`
	LoadStatus     LoadStatus   `bson:"load_status" db:"load_status" json:"load_status"`
	LastLoaded     *time.Time   `bson:"last_loaded" db:"last_loaded" json:"last_loaded"`
	BackupStatus   BackupStatus `bson:"backup_status" db:"backup_status" json:"backup_status,omitempty"`
	BackupLocation string       `bson:"backup_location" db:"backup_location" json:"backup_location,omitempty"`
	CreatedAt      time.Time    `bson:"created_at" db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `bson:"updated_at" db:"updated_at" json:"updated_at"`
}

// NewModelParams are the caller-supplied fields of a new record.
type NewModelParams struct {
	ModelID   string
	ModelName string
	Version   string
	Size      float64
	Location  string
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// NewModelMetadata builds a validated record. A model ID is generated when
// none is given. Version is left as supplied; callers without one assign it
// from a versioning.Sequencer before persisting.
func NewModelMetadata(p NewModelParams) (*ModelMetadata, error) {
	now := time.Now().UTC()
	m := &ModelMetadata{
		ModelID:    p.ModelID,
		ModelName:  p.ModelName,
		Version:    p.Version,
		Size:       p.Size,
		Location:   p.Location,
		LoadStatus: LoadStatusUnloaded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if m.ModelID == "" {
		m.ModelID = uuid.NewString()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the mandatory fields. Whitespace-only strings count as
// empty.
func (m *ModelMetadata) Validate() error {
	var fields []string

	err := getValidator().Struct(m)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	} else if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if len(fields) == 0 {
		if strings.TrimSpace(m.ModelName) == "" {
			fields = append(fields, "ModelName")
		}
		if strings.TrimSpace(m.Location) == "" {
			fields = append(fields, "Location")
		}
	}
	if m.LoadStatus != "" && !m.LoadStatus.Valid() {
		fields = append(fields, "LoadStatus")
	}
	if !m.BackupStatus.Valid() {
		fields = append(fields, "BackupStatus")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// MetadataUpdate is a partial update; nil fields are left untouched.
type MetadataUpdate struct {
	ModelName      *string       `json:"model_name,omitempty"`
	Version        *string       `json:"version,omitempty"`
	Size           *float64      `json:"size,omitempty"`
	Location       *string       `json:"location,omitempty"`
	LoadStatus     *LoadStatus   `json:"load_status,omitempty"`
	LastLoaded     *time.Time    `json:"last_loaded,omitempty"`
	BackupStatus   *BackupStatus `json:"backup_status,omitempty"`
	BackupLocation *string       `json:"backup_location,omitempty"`
}

// Validate rejects updates that would break the record's mandatory fields.
func (u MetadataUpdate) Validate() error {
	var fields []string
	if u.ModelName != nil && strings.TrimSpace(*u.ModelName) == "" {
		fields = append(fields, "ModelName")
	}
	if u.Size != nil && *u.Size == 0 {
		fields = append(fields, "Size")
	}
	if u.Location != nil && strings.TrimSpace(*u.Location) == "" {
		fields = append(fields, "Location")
	}
	if u.LoadStatus != nil && !u.LoadStatus.Valid() {
		fields = append(fields, "LoadStatus")
	}
	if u.BackupStatus != nil && !u.BackupStatus.Valid() {
		fields = append(fields, "BackupStatus")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Fields returns the set fields keyed by persisted name, with updated_at
// stamped to now. Moving to the loaded state stamps last_loaded as well
// unless the caller set it.
func (u MetadataUpdate) Fields(now time.Time) map[string]interface{} {
	f := map[string]interface{}{"updated_at": now}
	if u.ModelName != nil {
		f["model_name"] = *u.ModelName
	}
	if u.Version != nil {
		f["version"] = *u.Version
	}
	if u.Size != nil {
		f["size"] = *u.Size
	}
	if u.Location != nil {
		f["location"] = *u.Location
	}
	if u.LoadStatus != nil {
		f["load_status"] = string(*u.LoadStatus)
		if *u.LoadStatus == LoadStatusLoaded && u.LastLoaded == nil {
			f["last_loaded"] = now
		}
	}
	if u.LastLoaded != nil {
		f["last_loaded"] = *u.LastLoaded
	}
	if u.BackupStatus != nil {
		f["backup_status"] = string(*u.BackupStatus)
	}
	if u.BackupLocation != nil {
		f["backup_location"] = *u.BackupLocation
	}
	return f
}

// Apply merges the update into m in memory, mirroring what the stores do.
func (m *ModelMetadata) Apply(u MetadataUpdate, now time.Time) {
	if u.ModelName != nil {
		m.ModelName = *u.ModelName
	}
	if u.Version != nil {
		m.Version = *u.Version
	}
	if u.Size != nil {
		m.Size = *u.Size
	}
	if u.Location != nil {
		m.Location = *u.Location
	}
	if u.LoadStatus != nil {
		m.LoadStatus = *u.LoadStatus
		if *u.LoadStatus == LoadStatusLoaded && u.LastLoaded == nil {
			t := now
			m.LastLoaded = &t
		}
	}
	if u.LastLoaded != nil {
		t := *u.LastLoaded
		m.LastLoaded = &t
	}
	if u.BackupStatus != nil {
		m.BackupStatus = *u.BackupStatus
	}
	if u.BackupLocation != nil {
		m.BackupLocation = *u.BackupLocation
	}
	m.UpdatedAt = now
}

// Clone returns a deep copy of m.
func (m *ModelMetadata) Clone() *ModelMetadata {
	c := *m
	if m.LastLoaded != nil {
		t := *m.LastLoaded
		c.LastLoaded = &t
	}
	return &c
}
