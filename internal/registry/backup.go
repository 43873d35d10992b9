package registry

import (
	"context"
	"fmt"

	"sarinfer/internal/models"
	"sarinfer/internal/transfer"
	"sarinfer/internal/utils"
)

// BackupRequest selects a model and where to copy its folder. LocalPath
// defaults to the record's location, Bucket to the configured bucket and
// Prefix to DefaultPrefix. With a local root set, the folder must lie under
// it.
type BackupRequest struct {
	ModelRef
	LocalPath string `json:"local_path,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
}

// BackupResult is the outcome of a backup or restore.
type BackupResult struct {
	Model    *models.ModelMetadata `json:"model"`
	Location string                `json:"location"`
	Report   *transfer.Report      `json:"report,omitempty"`
}

// Backup uploads a model folder and records the backup on the model.
//
// The record's backup_status moves transfer_pending, then transfer_complete
// or transfer_failed, then recorded together with backup_location. A crash
// between steps leaves the last persisted status; rerunning Backup repeats
// the whole sequence and overwrites the uploaded objects. Objects already
// uploaded are never removed.
func (s *Service) Backup(ctx context.Context, req BackupRequest) (*BackupResult, error) {
	m, err := s.Resolve(ctx, req.ModelRef)
	if err != nil {
		return nil, err
	}

	bucket := req.Bucket
	if bucket == "" {
		bucket = s.defaultBucket
	}
	if bucket == "" {
		return nil, ErrNoBucket
	}
	prefix := req.Prefix
	if prefix == "" {
		prefix = DefaultPrefix(m)
	}
	localPath, err := s.folder(req.LocalPath, m)
	if err != nil {
		return nil, err
	}
	location := BackupLocation(bucket, prefix)
	result := &BackupResult{Model: m, Location: location}

	if err := s.setBackupStatus(ctx, m, models.BackupStatusTransferPending, nil); err != nil {
		return nil, err
	}

	s.logger.Info("Backing up model", "model_id", m.ModelID, "path", localPath, "location", location)
	report, err := s.transfer.Upload(ctx, localPath, bucket, prefix)
	result.Report = report
	if err != nil {
		s.markFailed(ctx, m)
		return result, fmt.Errorf("backup of %s failed: %w", m.ModelID, err)
	}
	if !report.OK() {
		s.markFailed(ctx, m)
		return result, &PartialTransferError{Report: report}
	}

	if err := s.setBackupStatus(ctx, m, models.BackupStatusTransferComplete, nil); err != nil {
		return result, err
	}
	if err := s.setBackupStatus(ctx, m, models.BackupStatusRecorded, utils.StringPtr(location)); err != nil {
		return result, err
	}

	s.logger.Info("Model backed up", "model_id", m.ModelID, "location", location, "files", report.Succeeded())
	return result, nil
}

func (s *Service) setBackupStatus(ctx context.Context, m *models.ModelMetadata, status models.BackupStatus, location *string) error {
	update := models.MetadataUpdate{BackupStatus: &status, BackupLocation: location}
	n, err := s.store.Update(ctx, m.ModelID, update)
	if err != nil {
		return fmt.Errorf("failed to set backup status %s: %w", status, err)
	}
	if n == 0 {
		if _, found, err := s.store.Get(ctx, m.ModelID); err != nil || !found {
			return fmt.Errorf("failed to set backup status %s: model %s no longer exists", status, m.ModelID)
		}
	}
	m.BackupStatus = status
	if location != nil {
		m.BackupLocation = *location
	}
	return nil
}

// markFailed records a failed transfer. The transfer error is what the
// caller sees, so a failure here is only logged.
func (s *Service) markFailed(ctx context.Context, m *models.ModelMetadata) {
	if err := s.setBackupStatus(ctx, m, models.BackupStatusTransferFailed, nil); err != nil {
		s.logger.Error("Failed to record failed backup", "model_id", m.ModelID, "error", err)
	}
}

// RestoreRequest selects a model and where to restore it. Bucket and
// Prefix default to the record's backup_location, then to the configured
// bucket and DefaultPrefix. LocalPath defaults to the record's location.
type RestoreRequest struct {
	ModelRef
	LocalPath string `json:"local_path,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
}

// Restore downloads a model's backup into a local folder. The record is not
// modified.
func (s *Service) Restore(ctx context.Context, req RestoreRequest) (*BackupResult, error) {
	m, err := s.Resolve(ctx, req.ModelRef)
	if err != nil {
		return nil, err
	}

	bucket, prefix := req.Bucket, req.Prefix
	if recBucket, recPrefix, ok := ParseBackupLocation(m.BackupLocation); ok {
		if bucket == "" {
			bucket = recBucket
		}
		if prefix == "" && bucket == recBucket {
			prefix = recPrefix
		}
	}
	if bucket == "" {
		bucket = s.defaultBucket
	}
	if bucket == "" {
		return nil, ErrNoBucket
	}
	if prefix == "" {
		prefix = DefaultPrefix(m)
	}
	localPath, err := s.folder(req.LocalPath, m)
	if err != nil {
		return nil, err
	}
	location := BackupLocation(bucket, prefix)
	result := &BackupResult{Model: m, Location: location}

	s.logger.Info("Restoring model", "model_id", m.ModelID, "location", location, "path", localPath)
	report, err := s.transfer.Restore(ctx, bucket, prefix, localPath)
	result.Report = report
	if err != nil {
		return result, fmt.Errorf("restore of %s failed: %w", m.ModelID, err)
	}
	if !report.OK() {
		return result, &PartialTransferError{Report: report}
	}

	s.logger.Info("Model restored", "model_id", m.ModelID, "path", localPath, "files", report.Succeeded())
	return result, nil
}
