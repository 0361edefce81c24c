package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Dan9191/bank-account/internal/models"
	"github.com/Dan9191/bank-account/internal/utils"
	"github.com/spf13/afero"
)

const snapshotVersion = 1

// ErrBadSignature is returned when a snapshot does not match its HMAC
var ErrBadSignature = errors.New("snapshot signature mismatch")

// SnapshotStore keeps a signed JSON snapshot of account balances in a single file
type SnapshotStore struct {
	fs     afero.Fs
	reader *Reader
	name   string
	secret string
	now    func() time.Time
}

// NewSnapshotStore stores snapshots at path, signed with secret
func NewSnapshotStore(fsys afero.Fs, path, secret string) *SnapshotStore {
	return &SnapshotStore{
		fs:     fsys,
		reader: NewReader(fsys, filepath.Dir(path)),
		name:   filepath.Base(path),
		secret: secret,
		now:    time.Now,
	}
}

// Load returns the stored snapshot, or an empty one when nothing has been saved yet
func (s *SnapshotStore) Load(ctx context.Context) (models.Snapshot, error) {
	content, ok, err := s.reader.Read(ctx, s.name)
	if err != nil {
		return models.Snapshot{}, err
	}
	if !ok {
		return models.Snapshot{Version: snapshotVersion}, nil
	}

	var signed models.SignedSnapshot
	if err := json.Unmarshal([]byte(content), &signed); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	payload, err := json.Marshal(signed.Snapshot)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if !utils.VerifyHMAC(payload, signed.HMAC, s.secret) {
		return models.Snapshot{}, ErrBadSignature
	}
	return signed.Snapshot, nil
}

// Save writes the snapshot to a temporary file and renames it over the previous one
func (s *SnapshotStore) Save(ctx context.Context, accounts []models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := models.Snapshot{
		Version:  snapshotVersion,
		SavedAt:  s.now().UTC(),
		Accounts: accounts,
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	data, err := json.MarshalIndent(models.SignedSnapshot{
		Snapshot: snap,
		HMAC:     utils.GenerateHMAC(payload, s.secret),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := s.reader.Path(s.name)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
