package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"villabook/internal/app"
	"villabook/internal/domain"
	"villabook/internal/modules/auth"
	"villabook/internal/modules/property"
)

const (
	demoOwnerEmail    = "owner@villabook.local"
	demoOwnerPassword = "owner-demo-123"
)

type seedOptions struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	Demo          bool
}

// seed is safe to run repeatedly: existing accounts are left untouched.
func seed(ctx context.Context, out io.Writer, a *app.App, opts seedOptions) error {
	if len(opts.AdminPassword) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}

	admin, err := a.Auth.CreateAdmin(ctx, opts.AdminEmail, opts.AdminPassword, opts.AdminName)
	switch {
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		fmt.Fprintf(out, "Admin %s already exists, skipping.\n", opts.AdminEmail)
		if admin, err = a.Users.GetByEmail(ctx, opts.AdminEmail); err != nil {
			return fmt.Errorf("load admin: %w", err)
		}
	case err != nil:
		return fmt.Errorf("create admin: %w", err)
	default:
		fmt.Fprintf(out, "Admin created: %s\n", admin.Email)
	}

	if !opts.Demo {
		return nil
	}
	return seedDemo(ctx, out, a, admin)
}

func seedDemo(ctx context.Context, out io.Writer, a *app.App, admin *domain.User) error {
	res, err := a.Auth.Register(ctx, auth.RegisterRequest{
		Email:    demoOwnerEmail,
		Password: demoOwnerPassword,
		Name:     "Demo Owner",
		Role:     domain.RoleOwner,
	})
	if errors.Is(err, auth.ErrEmailAlreadyExists) {
		fmt.Fprintln(out, "Demo data already present, skipping.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create demo owner: %w", err)
	}
	owner := domain.Actor{UserID: res.User.ID, Role: domain.RoleOwner}

	p, err := a.Property.Create(ctx, owner, property.CreatePropertyRequest{
		Title:       "Casa do Mar",
		Description: "Three-bedroom house a short walk from the beach.",
		Address:     "Rua do Farol 12",
		City:        "Ericeira",
		Country:     "Portugal",
		MaxGuests:   6,
		Bedrooms:    3,
		Bathrooms:   2,
		Rates: property.RateCardInput{
			NightlyRate:        18000,
			WeekendRate:        22000,
			WeeklyDiscountPct:  10,
			MonthlyDiscountPct: 25,
			CleaningFee:        6000,
			MinNights:          2,
		},
	})
	if err != nil {
		return fmt.Errorf("create demo property: %w", err)
	}
	if _, err := a.Property.Publish(ctx, owner, p.ID); err != nil {
		return fmt.Errorf("publish demo property: %w", err)
	}
	if _, err := a.Property.Approve(ctx, admin.ID, p.ID); err != nil {
		return fmt.Errorf("approve demo property: %w", err)
	}
	fmt.Fprintf(out, "Demo owner %s / %s with property %q (%s)\n", demoOwnerEmail, demoOwnerPassword, p.Title, p.Slug)
	return nil
}
