package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tokenswap/internal/model"
	"tokenswap/internal/storage"
)

var _ storage.Journal = (*Store)(nil)

// PutOperationBatch appends committed operation records.
func (s *Store) PutOperationBatch(ctx context.Context, records []model.OperationRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO operations (
				kind, pool, actor, fee_bps, amount_a, amount_b, amount_in, amount_out,
				source, destination, reserve_in, reserve_out, ts
			) VALUES ($1,$2,$3,$4,$5::numeric,$6::numeric,$7::numeric,$8::numeric,$9,$10,$11::numeric,$12::numeric,$13)
		`,
			string(r.Kind),
			r.Pool.String(),
			r.Actor.String(),
			int64(r.FeeBps),
			numeric(r.AmountA),
			numeric(r.AmountB),
			numeric(r.AmountIn),
			numeric(r.AmountOut),
			optionalID(r.Source),
			optionalID(r.Destination),
			numeric(r.ReserveIn),
			numeric(r.ReserveOut),
			r.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert operation: %w", err)
		}
	}
	return nil
}

// Operations returns up to limit records for a pool, oldest first. A limit of
// zero returns every record.
func (s *Store) Operations(ctx context.Context, pool model.AccountID, limit int) ([]model.OperationRecord, error) {
	var maxRows any
	if limit > 0 {
		maxRows = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT kind, pool, actor, fee_bps, amount_a::text, amount_b::text, amount_in::text,
			amount_out::text, source, destination, reserve_in::text, reserve_out::text, ts
		FROM operations WHERE pool = $1 ORDER BY id LIMIT $2
	`, pool.String(), maxRows)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var records []model.OperationRecord
	for rows.Next() {
		var kind, poolID, actor, ts string
		var fee int64
		var amountA, amountB, amountIn, amountOut, reserveIn, reserveOut string
		var source, destination *string
		if err := rows.Scan(&kind, &poolID, &actor, &fee, &amountA, &amountB, &amountIn,
			&amountOut, &source, &destination, &reserveIn, &reserveOut, &ts); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}

		record := model.OperationRecord{
			Kind:      model.OperationKind(kind),
			FeeBps:    uint64(fee),
			Timestamp: ts,
		}
		if record.Pool, err = model.ParseAccountID(poolID); err != nil {
			return nil, err
		}
		if record.Actor, err = model.ParseAccountID(actor); err != nil {
			return nil, err
		}
		if record.Source, err = parseOptionalID(source); err != nil {
			return nil, err
		}
		if record.Destination, err = parseOptionalID(destination); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			dst *uint64
			src string
		}{
			{&record.AmountA, amountA},
			{&record.AmountB, amountB},
			{&record.AmountIn, amountIn},
			{&record.AmountOut, amountOut},
			{&record.ReserveIn, reserveIn},
			{&record.ReserveOut, reserveOut},
		} {
			if *f.dst, err = parseNumeric(f.src); err != nil {
				return nil, err
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return records, nil
}

func optionalID(id *model.AccountID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseOptionalID(s *string) (*model.AccountID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := model.ParseAccountID(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
