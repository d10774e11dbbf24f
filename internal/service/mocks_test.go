package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openimis/tools-module/internal/domain/model"
	"github.com/openimis/tools-module/internal/repository"
)

// --- Mock TxRunner ---

// mockTx вызывает fn без реальной транзакции и считает исходы.
type mockTx struct {
	commits   int
	rollbacks int
}

func (m *mockTx) RunInTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

// --- Mock ItemRepository ---

// mockItemRepo — мок ItemRepository. Без заданных функций ведёт себя
// как таблица в памяти.
type mockItemRepo struct {
	items  []*model.Item
	nextID int

	findFn   func(ctx context.Context, code string, now time.Time) (*model.Item, error)
	createFn func(ctx context.Context, item *model.Item) error

	updated []int
	closed  []int
}

func (m *mockItemRepo) FindCurrentByCode(ctx context.Context, code string, now time.Time) (*model.Item, error) {
	if m.findFn != nil {
		return m.findFn(ctx, code, now)
	}
	var found []*model.Item
	for _, it := range m.items {
		if it.Code == code && it.IsCurrent(now) {
			found = append(found, it)
		}
	}
	switch len(found) {
	case 0:
		return nil, repository.ErrNotFound
	case 1:
		cp := *found[0]
		return &cp, nil
	default:
		return nil, repository.ErrAmbiguousMatch
	}
}

func (m *mockItemRepo) ListCurrent(_ context.Context, now time.Time) ([]*model.Item, error) {
	var out []*model.Item
	for _, it := range m.items {
		if it.IsCurrent(now) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockItemRepo) Create(ctx context.Context, item *model.Item) error {
	if m.createFn != nil {
		return m.createFn(ctx, item)
	}
	m.nextID++
	item.ID = 100 + m.nextID
	cp := *item
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockItemRepo) Update(_ context.Context, item *model.Item) error {
	for i, it := range m.items {
		if it.ID == item.ID {
			cp := *item
			cp.ValidityFrom = it.ValidityFrom
			m.items[i] = &cp
			m.updated = append(m.updated, item.ID)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockItemRepo) CloseValidity(_ context.Context, id int, at time.Time, auditUserID int) error {
	for _, it := range m.items {
		if it.ID == id && (it.ValidityTo == nil || it.ValidityTo.After(at)) {
			it.ValidityTo = &at
			it.AuditUserID = auditUserID
			m.closed = append(m.closed, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- Mock ExtractRepository ---

type mockExtractRepo struct {
	created []*model.Extract

	getByUUIDFn func(ctx context.Context, extractUUID string) (*model.Extract, error)
	listFn      func(ctx context.Context, limit, offset int) ([]*model.Extract, error)
	countFn     func(ctx context.Context) (int, error)
	getCalls    int
}

func (m *mockExtractRepo) Create(_ context.Context, e *model.Extract) error {
	e.ID = len(m.created) + 1
	m.created = append(m.created, e)
	return nil
}

func (m *mockExtractRepo) GetByUUID(ctx context.Context, extractUUID string) (*model.Extract, error) {
	m.getCalls++
	if m.getByUUIDFn != nil {
		return m.getByUUIDFn(ctx, extractUUID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockExtractRepo) List(ctx context.Context, limit, offset int) ([]*model.Extract, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockExtractRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return len(m.created), nil
}

func (m *mockExtractRepo) NextSequence(_ context.Context, direction int16) (int, error) {
	next := 1
	for _, e := range m.created {
		if e.Direction == direction && e.Sequence >= next {
			next = e.Sequence + 1
		}
	}
	return next, nil
}
