package postgres

import "pagetransform/internal/storage"

func init() {
	storage.Register("postgres", New)
}
