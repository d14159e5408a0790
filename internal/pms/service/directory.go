package service

import (
	"context"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"go.uber.org/zap"
)

// Directory read-only user lookup for display names and recipients.
type Directory struct {
	repo   *repository.UserRepository
	logger *zap.Logger
}

func NewDirectory(repo *repository.UserRepository, logger *zap.Logger) *Directory {
	return &Directory{repo: repo, logger: logger}
}

func (d *Directory) Lookup(ctx context.Context, email string) (*entity.User, error) {
	u, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, orNotFound(err, "user", email)
	}
	return u, nil
}

func (d *Directory) ByRole(ctx context.Context, role string) ([]entity.User, error) {
	return d.repo.FindByRole(ctx, role, "")
}

// DisplayName falls back to the email for unknown users.
func (d *Directory) DisplayName(ctx context.Context, email string) string {
	u, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return email
	}
	return u.DisplayName()
}

// Emails recipients holding role; lookup failures yield no recipients.
func (d *Directory) Emails(ctx context.Context, role, division string) []string {
	users, err := d.repo.FindByRole(ctx, role, division)
	if err != nil {
		d.logger.Warn("recipient lookup failed", zap.String("role", role), zap.Error(err))
		return nil
	}
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Email)
	}
	return out
}
