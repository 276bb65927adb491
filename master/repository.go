package master

import "context"

// Repository persists master records. Every read hides soft-deleted rows.
type Repository interface {
	// Paginate returns one page of records matching c.
	Paginate(ctx context.Context, c Criteria, page PageRequest) (Page, error)
	// TypeCount counts live records per type within the scope of c.
	TypeCount(ctx context.Context, c Criteria) ([]TypeCount, error)
	// Groups lists the distinct groups within the scope of c.
	Groups(ctx context.Context, c Criteria) ([]string, error)
	Find(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	// Update applies the supplied attributes to one live record.
	Update(ctx context.Context, id int64, attrs Attributes) (Record, error)
	// Delete soft-deletes one live record and returns it as it was.
	Delete(ctx context.Context, id int64) (Record, error)
	Ping(ctx context.Context) error
}
