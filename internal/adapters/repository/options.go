package repository

// Defaults for the in-memory store.
const (
	DefaultMaxFarmers = 10000
	DefaultPerFarmer  = 50
)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithMaxFarmers bounds how many farmers are kept. The least recently
// touched farmer is evicted first.
func WithMaxFarmers(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxFarmers = n
		}
	}
}

// WithPerFarmer bounds how many records are kept for one farmer. Older
// records are dropped first.
func WithPerFarmer(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.perFarmer = n
		}
	}
}
