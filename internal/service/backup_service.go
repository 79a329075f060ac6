package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/backupcrypto"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnrecognizedFormat   = errors.New("unrecognized backup format")
	ErrBackupPasswordNotSet = errors.New("backup file is encrypted but no backup password is configured")
	ErrDecryptFailed        = errors.New("could not decrypt backup file with the configured backup password")
)

type BackupService interface {
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, actor Actor, raw []byte) (*MergeResult, error)
	SetBackupPassword(ctx context.Context, actor Actor, password string) error
	HasBackupPassword() bool
}

type backupService struct {
	ws     *PosWorkspace
	events Publisher
	log    logrus.FieldLogger
}

func NewBackupService(w *PosWorkspace, events Publisher, log logrus.FieldLogger) BackupService {
	return &backupService{ws: w, events: events, log: log}
}

// BackupFileName names an export like pos_backup_admin_20240131_0930.json.
func BackupFileName(username string, at time.Time) string {
	return fmt.Sprintf("pos_backup_%s_%s.json", username, at.Format("20060102_1504"))
}

// Export serializes the whole document, encrypted when a backup password is
// set.
func (s *backupService) Export(ctx context.Context) ([]byte, error) {
	snapshot := s.ws.Snapshot()
	plain, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, err
	}
	if !snapshot.HasBackupPassword() {
		s.log.Warn("Exporting unencrypted backup: no backup password configured")
		return plain, nil
	}
	return encryptDocument(plain, *snapshot.BackupPassword)
}

func encryptDocument(plain []byte, password string) ([]byte, error) {
	payload, err := backupcrypto.Encrypt(string(plain), password)
	if err != nil {
		return nil, fmt.Errorf("encrypt backup: %w", err)
	}
	return json.MarshalIndent(payload, "", "  ")
}

// Import merges a backup file into the live document and recomputes stock
// from the merged history. Decryption and shape are checked before anything
// changes; any failure leaves the document as it was.
func (s *backupService) Import(ctx context.Context, actor Actor, raw []byte) (*MergeResult, error) {
	var result MergeResult
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		payload, err := decryptIfNeeded(raw, st.BackupPassword)
		if err != nil {
			return err
		}
		if err := checkSnapshotShape(payload); err != nil {
			return err
		}
		incoming, _, err := repository.MigratePos(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
		}

		result = MergeSnapshot(st, incoming, s.log)
		RecalculateAll(st)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"sales_added":    result.Sales.Added,
		"products_added": result.Products.Added,
		"users_added":    result.Users.Added,
	}).Info("Backup merged")
	s.events.Publish(ws.Event{
		Type:    ws.TypeStateUpdate,
		Action:  "backup_imported",
		Data:    result,
		User:    actor.eventUser(),
		Message: fmt.Sprintf("%s merged a backup file", actor.Username),
	})
	return &result, nil
}

func decryptIfNeeded(raw []byte, password *string) ([]byte, error) {
	payload, encrypted := backupcrypto.Parse(raw)
	if !encrypted {
		return raw, nil
	}
	if password == nil || *password == "" {
		return nil, ErrBackupPasswordNotSet
	}
	plain, ok := backupcrypto.Decrypt(payload, *password)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return []byte(plain), nil
}

// checkSnapshotShape requires a JSON object carrying a users array.
func checkSnapshotShape(raw []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	users, ok := top["users"]
	if !ok {
		return fmt.Errorf("%w: missing users collection", ErrUnrecognizedFormat)
	}
	if trimmed := bytes.TrimSpace(users); len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%w: users is not a list", ErrUnrecognizedFormat)
	}
	return nil
}

// SetBackupPassword sets the dataset's backup password; an empty value
// clears it and later exports are written in plain JSON.
func (s *backupService) SetBackupPassword(ctx context.Context, actor Actor, password string) error {
	password = strings.TrimSpace(password)
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		if password == "" {
			st.BackupPassword = nil
			return nil
		}
		pw := password
		st.BackupPassword = &pw
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithField("set", password != "").Info("Backup password changed")
	return nil
}

func (s *backupService) HasBackupPassword() bool {
	set := false
	s.ws.View(func(st *model.PosState) error {
		set = st.HasBackupPassword()
		return nil
	})
	return set
}
