package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/clientdata"
	"github.com/wardenlabs/warden/internal/reliability"
)

// CacheExpiryJob prunes expired market data cache entries.
type CacheExpiryJob struct {
	repo *clientdata.Repository
	log  zerolog.Logger
}

// NewCacheExpiryJob creates the cache pruning job.
func NewCacheExpiryJob(repo *clientdata.Repository, log zerolog.Logger) *CacheExpiryJob {
	return &CacheExpiryJob{
		repo: repo,
		log:  log.With().Str("job", "cache_expiry").Logger(),
	}
}

// Name returns the job name.
func (j *CacheExpiryJob) Name() string {
	return "cache_expiry"
}

// Run deletes all expired cache rows.
func (j *CacheExpiryJob) Run() error {
	deleted, err := j.repo.DeleteAllExpired()
	if err != nil {
		return err
	}

	var total int64
	for _, n := range deleted {
		total += n
	}
	if total > 0 {
		j.log.Info().Int64("deleted", total).Msg("Pruned expired cache entries")
	}
	return nil
}

// backupTimeout bounds one backup run, upload included.
const backupTimeout = 15 * time.Minute

// BackupJob uploads a database backup and rotates old archives.
type BackupJob struct {
	service *reliability.BackupService
	log     zerolog.Logger
}

// NewBackupJob creates the scheduled backup job.
func NewBackupJob(service *reliability.BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name.
func (j *BackupJob) Name() string {
	return "backup"
}

// Run creates and uploads a backup, then applies the retention policy.
// Rotation failure is logged but does not fail the job: the backup itself
// succeeded.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}

	return nil
}
