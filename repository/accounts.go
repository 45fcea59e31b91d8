package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	cancel "github.com/goliatone/go-cancel"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DeleteAccountSQL removes a single account and returns the deleted row.
var DeleteAccountSQL = `DELETE FROM "accounts"
WHERE
	"id" = ?
RETURNING *;`

// NewAccountsRepository returns the generic repository for accounts. Account
// ids are assigned by the host, so SetID never overwrites them.
func NewAccountsRepository(db *bun.DB) repository.Repository[*cancel.Account] {
	return repository.NewRepository[*cancel.Account](db, repository.ModelHandlers[*cancel.Account]{
		NewRecord: func() *cancel.Account { return &cancel.Account{} },
		GetID: func(a *cancel.Account) uuid.UUID {
			return uuid.Nil
		},
		SetID: func(a *cancel.Account, id uuid.UUID) {},
		GetIdentifier: func() string {
			return "id"
		},
	})
}

// AccountStore implements cancel.Accounts on top of the generic repository.
type AccountStore struct {
	repository.Repository[*cancel.Account]
	db *bun.DB
}

var _ cancel.Accounts = (*AccountStore)(nil)

// NewAccountStore creates a new store.
func NewAccountStore(db *bun.DB) *AccountStore {
	return &AccountStore{
		Repository: NewAccountsRepository(db),
		db:         db,
	}
}

// LoadAccount implements cancel.Accounts.
func (r *AccountStore) LoadAccount(ctx context.Context, id int64) (*cancel.Account, error) {
	record, err := r.Repository.GetByID(ctx, accountKey(id))
	if err != nil {
		if isNoRows(err) {
			return nil, cancel.ErrAccountNotFound
		}
		return nil, err
	}
	record.EnsureStatus()
	return record, nil
}

// SaveAccount implements cancel.Accounts. Unknown accounts are inserted.
func (r *AccountStore) SaveAccount(ctx context.Context, account *cancel.Account) error {
	if account == nil {
		return cancel.ErrAccountNotFound
	}
	account.EnsureStatus()
	now := time.Now().UTC()
	account.UpdatedAt = &now

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := r.Repository.GetByIdentifierTx(ctx, tx, accountKey(account.ID))
		if err == nil {
			if account.CreatedAt == nil {
				account.CreatedAt = existing.CreatedAt
			}
			_, err = r.Repository.UpdateTx(ctx, tx, account, repository.UpdateByID(accountKey(account.ID)))
			return err
		}

		if !isNoRows(err) {
			return err
		}

		if account.CreatedAt == nil {
			account.CreatedAt = &now
		}
		_, err = r.Repository.CreateTx(ctx, tx, account)
		return err
	})
}

// DeleteAccount implements cancel.Accounts.
func (r *AccountStore) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.Repository.RawTx(ctx, r.db, DeleteAccountSQL, id)
	if err != nil {
		if isNoRows(err) {
			return cancel.ErrAccountNotFound
		}
		return err
	}
	if len(res) == 0 {
		return cancel.ErrAccountNotFound
	}
	return nil
}

func accountKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
