package repository

import (
	"context"
	"errors"

	"dicers-bot/internal/features/dicers/models"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// ErrCorruptSnapshot is returned by Load when the stored document cannot be
// decoded.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// SnapshotRepository stores the whole bot state as one document.
type SnapshotRepository interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snapshot *models.Snapshot) error
	Ping(ctx context.Context) error
}
