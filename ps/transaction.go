package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction identifies one checkpoint commit.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func (transaction Transaction) IsZero() bool {
	return transaction.Id == ""
}

func author(sig object.Signature) string {
	if sig.Name == "" && sig.Email == "" {
		return ""
	}
	return fmt.Sprintf("%s <%s>", sig.Name, sig.Email)
}

func fromCommit(c *object.Commit) Transaction {
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  author(c.Author),
		Message: c.Message,
	}
}

// LatestTransaction returns the HEAD checkpoint, or the zero Transaction.
func (persistence *Persistence) LatestTransaction() Transaction {
	if !persistence.IsInitialized() {
		return Transaction{}
	}
	headRef, err := persistence.repo.Head()
	if err != nil || headRef == nil {
		return Transaction{}
	}

	commit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}
	return fromCommit(commit)
}

// TransactionsSince lists checkpoints newer than asof, newest first.
// The zero time lists the whole history.
func (persistence *Persistence) TransactionsSince(asof time.Time) ([]Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}
	if persistence.LatestTransaction().IsZero() {
		return nil, nil
	}

	options := &git.LogOptions{}
	if !asof.IsZero() {
		options.Since = &asof
	}
	cIter, err := persistence.repo.Log(options)
	if err != nil {
		return nil, err
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, fromCommit(c))
		return nil
	})
	return transactions, err
}

// Resolve finds the checkpoint named by a transaction id or tag. An empty id
// means the latest checkpoint.
func (persistence *Persistence) Resolve(id string) (Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	persistence.mu.RLock()
	defer persistence.mu.RUnlock()

	commit, err := persistence.commitAt(id)
	if err != nil {
		return Transaction{}, err
	}
	return fromCommit(commit), nil
}
