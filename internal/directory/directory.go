package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xraybot/internal/model"
	"xraybot/internal/xray"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnknownCredential = errors.New("credential not found in directory")
	ErrAlreadyBound      = errors.New("credential is bound to another user")
	ErrNotBound          = errors.New("credential is not bound")
)

const syncBatchSize = 500

// Directory stores users, known credentials and the bindings between them.
type Directory struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// EnsureUser registers a Telegram user or refreshes its names.
func (d *Directory) EnsureUser(ctx context.Context, u model.TelegramUser) error {
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", u.TelegramID, err)
	}
	return nil
}

// BoundCredentials lists the credentials bound to a user, oldest binding first.
func (d *Directory) BoundCredentials(ctx context.Context, telegramID int64) ([]model.Binding, error) {
	var rows []model.Binding
	err := d.db.WithContext(ctx).
		Table("user_uuid AS u").
		Select("c.uuid AS uuid, c.email AS email").
		Joins("JOIN xray_client c ON c.uuid = u.uuid").
		Where("u.telegram_id = ?", telegramID).
		Order("u.bound_at, u.uuid").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load bindings for %d: %w", telegramID, err)
	}
	return rows, nil
}

// SyncCredentials inserts new credentials and refreshes emails of known ones.
// Credentials missing from creds are kept: they may still be bound.
// progress, when set, is called with the size of each written batch.
func (d *Directory) SyncCredentials(ctx context.Context, creds []xray.Credential, progress func(int)) (int64, error) {
	// One upsert must not touch the same row twice.
	seen := make(map[string]int, len(creds))
	unique := make([]xray.Credential, 0, len(creds))
	for _, c := range creds {
		if i, dup := seen[c.ID]; dup {
			unique[i] = c
			continue
		}
		seen[c.ID] = len(unique)
		unique = append(unique, c)
	}
	creds = unique

	var total int64
	for start := 0; start < len(creds); start += syncBatchSize {
		end := min(start+syncBatchSize, len(creds))

		batch := make([]model.XrayClient, 0, end-start)
		for _, c := range creds[start:end] {
			batch = append(batch, model.XrayClient{UUID: c.ID, Email: c.Email})
		}

		result := d.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uuid"}},
			DoUpdates: clause.AssignmentColumns([]string{"email"}),
		}).Create(&batch)
		if result.Error != nil {
			return total, fmt.Errorf("failed to sync credentials: %w", result.Error)
		}
		total += result.RowsAffected
		if progress != nil {
			progress(len(batch))
		}
	}
	return total, nil
}

// Bind assigns a known credential to a user. Binding a credential to the user
// that already owns it is a no-op.
func (d *Directory) Bind(ctx context.Context, telegramID int64, uuid string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client model.XrayClient
		res := tx.Where("uuid = ?", uuid).Limit(1).Find(&client)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownCredential, uuid)
		}

		var existing model.UserUUID
		res = tx.Where("uuid = ?", uuid).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if existing.TelegramID == telegramID {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrAlreadyBound, uuid)
		}

		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.TelegramUser{TelegramID: telegramID}).Error
		if err != nil {
			return err
		}

		return tx.Create(&model.UserUUID{
			UUID:       uuid,
			TelegramID: telegramID,
			BoundAt:    time.Now().UTC(),
		}).Error
	})
}

// Unbind removes the owner of a credential.
func (d *Directory) Unbind(ctx context.Context, uuid string) error {
	res := d.db.WithContext(ctx).Where("uuid = ?", uuid).Delete(&model.UserUUID{})
	if res.Error != nil {
		return fmt.Errorf("failed to unbind %s: %w", uuid, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotBound, uuid)
	}
	return nil
}

// Clients lists every known credential with its owner.
func (d *Directory) Clients(ctx context.Context) ([]model.ClientOwner, error) {
	var rows []model.ClientOwner
	err := d.db.WithContext(ctx).
		Table("xray_client AS c").
		Select("c.uuid AS uuid, c.email AS email, u.telegram_id AS telegram_id, t.username AS username, t.first_name AS first_name").
		Joins("LEFT JOIN user_uuid u ON u.uuid = c.uuid").
		Joins("LEFT JOIN telegram_user t ON t.telegram_id = u.telegram_id").
		Order("c.discovered, c.uuid").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return rows, nil
}
