package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	cancel "github.com/goliatone/go-cancel"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Manager exposes the bun backed stores
type Manager interface {
	cancel.RepositoryManager
	repository.TransactionManager
	Activity() *ActivityStore
}

type mngr struct {
	db       *bun.DB
	accounts *AccountStore
	content  *ContentStore
	activity *ActivityStore
}

func NewRepositoryManager(db *bun.DB) Manager {
	return &mngr{
		db:       db,
		accounts: NewAccountStore(db),
		content:  NewContentStore(db),
		activity: NewActivityStore(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.content == nil {
		return errors.New("repository content should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() cancel.Accounts {
	return m.accounts
}

func (m mngr) Content() cancel.Content {
	return m.content
}

func (m mngr) Activity() *ActivityStore {
	return m.activity
}
