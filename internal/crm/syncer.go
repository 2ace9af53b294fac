package crm

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"villabook/internal/domain"
)

type ContactUpserter interface {
	UpsertContact(ctx context.Context, contact Contact) (string, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListNeedingCRMSync(ctx context.Context, limit int) ([]domain.User, error)
	MarkCRMSynced(ctx context.Context, id int64, contactID string, at time.Time) error
}

// Syncer pushes users to the CRM. A nil client turns every call into a no-op.
type Syncer struct {
	client ContactUpserter
	users  UserStore
	now    func() time.Time
}

func NewSyncer(client ContactUpserter, users UserStore) *Syncer {
	return &Syncer{client: client, users: users, now: time.Now}
}

func (s *Syncer) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *Syncer) SyncUser(ctx context.Context, u *domain.User) error {
	if !s.Enabled() {
		return nil
	}
	id, err := s.client.UpsertContact(ctx, Contact{
		ExternalID: strconv.FormatInt(u.ID, 10),
		Email:      u.Email,
		Name:       u.Name,
		Phone:      u.Phone,
		Role:       string(u.Role),
	})
	if err != nil {
		return fmt.Errorf("crm sync user %d: %w", u.ID, err)
	}
	if err := s.users.MarkCRMSynced(ctx, u.ID, id, s.now().UTC()); err != nil {
		return fmt.Errorf("store crm contact id for user %d: %w", u.ID, err)
	}
	return nil
}

// SyncUserAsync runs SyncUser in the background, logging failures.
func (s *Syncer) SyncUserAsync(userID int64) {
	if !s.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			log.Printf("level=error msg=crm sync lookup failed user_id=%d err=%v", userID, err)
			return
		}
		if err := s.SyncUser(ctx, u); err != nil {
			log.Printf("level=error msg=crm sync failed user_id=%d err=%v", userID, err)
		}
	}()
}

// SyncPending syncs up to limit stale users and reports how many succeeded.
func (s *Syncer) SyncPending(ctx context.Context, limit int) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	users, err := s.users.ListNeedingCRMSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list users for crm sync: %w", err)
	}

	synced := 0
	for i := range users {
		if err := s.SyncUser(ctx, &users[i]); err != nil {
			log.Printf("level=error msg=crm sync failed user_id=%d err=%v", users[i].ID, err)
			continue
		}
		synced++
	}
	log.Printf("level=info msg=crm sync pending done candidates=%d synced=%d", len(users), synced)
	return synced, nil
}
