package repository

import (
	"context"
	"errors"
	"fmt"
)

// findOrCreate общий сценарий lookup-or-create для учителей и студентов.
// Проигравший гонку на уникальном email перечитывает запись вместо ошибки.
func findOrCreate[T any](
	ctx context.Context,
	email string,
	find func(context.Context, string) (*T, error),
	create func(context.Context, string) (*T, error),
) (*T, error) {
	found, err := find(ctx, email)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	created, err := create(ctx, email)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ErrAlreadyExists) {
		return nil, err
	}

	found, err = find(ctx, email)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("identity %s vanished after concurrent create", email)
	}
	return found, nil
}
