// package models defines the data model shared by the store, the sync engine and the undo log
package models

// Model is implemented by every persisted entity.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the read and delete operations every repository exposes.
// Writes are entity specific (upserts keyed by persistent id) and live on the concrete types.
type Repository[T Model] interface {
	Get(id int64) (T, error)                   // Get retrieves a model by its local ID
	Delete(id int64) error                     // Delete removes a model from the database by its local ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}
