package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

// TagGroupRepository implements models.Repository[*models.TagGroup].
//
// Group names and member tag names are unique without regard to case.
type TagGroupRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.TagGroup] = (*TagGroupRepository)(nil)

// NewTagGroupRepository creates a new TagGroupRepository with the given database connection
func NewTagGroupRepository(db *sql.DB) *TagGroupRepository {
	return &TagGroupRepository{db: db}
}

// Create inserts a new group at the end of the display order.
func (r *TagGroupRepository) Create(group *models.TagGroup) error {
	group.Name = strings.TrimSpace(group.Name)
	if err := group.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.QueryRow("SELECT COALESCE(MAX(position), -1) + 1 FROM tag_groups").Scan(&group.Position); err != nil {
		return fmt.Errorf("%w: failed to compute group position: %v", shared.ErrStore, err)
	}

	result, err := r.db.Exec("INSERT INTO tag_groups (name, color, position) VALUES (?, ?, ?)", group.Name, group.Color, group.Position)
	if err != nil {
		return fmt.Errorf("%w: failed to insert tag group %q: %v", shared.ErrStore, group.Name, err)
	}

	if group.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("%w: failed to read tag group id: %v", shared.ErrStore, err)
	}
	return nil
}

// Get retrieves a group and its member tags by ID.
func (r *TagGroupRepository) Get(id int64) (*models.TagGroup, error) {
	var g models.TagGroup
	err := r.db.QueryRow("SELECT id, name, color, position FROM tag_groups WHERE id = ?", id).Scan(&g.ID, &g.Name, &g.Color, &g.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", shared.ErrTagGroupNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tag group: %w", err)
	}

	members, err := r.members()
	if err != nil {
		return nil, err
	}
	g.Tags = members[g.ID]
	return &g, nil
}

// GetByName retrieves a group by case-insensitive name.
func (r *TagGroupRepository) GetByName(name string) (*models.TagGroup, error) {
	var id int64
	err := r.db.QueryRow("SELECT id FROM tag_groups WHERE name = ?", strings.TrimSpace(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTagGroupNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find tag group: %v", shared.ErrStore, err)
	}
	return r.Get(id)
}

// Delete removes a group; its tags become ungrouped.
func (r *TagGroupRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM tag_groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete tag group %d: %v", shared.ErrStore, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", shared.ErrTagGroupNotFound, id)
	}
	return nil
}

// List retrieves every group in display order with its member tags.
func (r *TagGroupRepository) List(criteria map[string]any) ([]*models.TagGroup, error) {
	rows, err := r.db.Query("SELECT id, name, color, position FROM tag_groups ORDER BY position, id")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tag groups: %v", shared.ErrStore, err)
	}

	var groups []*models.TagGroup
	for rows.Next() {
		var g models.TagGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Color, &g.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan tag group: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	members, err := r.members()
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		g.Tags = members[g.ID]
	}
	return groups, nil
}

// Assign moves tag into the group, replacing any previous assignment.
func (r *TagGroupRepository) Assign(tag string, groupID int64) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("%w: tag name is empty", shared.ErrInvalidInput)
	}
	if _, err := r.Get(groupID); err != nil {
		return err
	}

	_, err := r.db.Exec(`
		INSERT INTO tag_group_members (tag_name, group_id) VALUES (?, ?)
		ON CONFLICT(tag_name) DO UPDATE SET group_id = excluded.group_id
	`, tag, groupID)
	if err != nil {
		return fmt.Errorf("%w: failed to assign tag %q: %v", shared.ErrStore, tag, err)
	}
	return nil
}

// Unassign removes tag from whichever group holds it.
func (r *TagGroupRepository) Unassign(tag string) error {
	if _, err := r.db.Exec("DELETE FROM tag_group_members WHERE tag_name = ?", strings.TrimSpace(tag)); err != nil {
		return fmt.Errorf("%w: failed to unassign tag %q: %v", shared.ErrStore, tag, err)
	}
	return nil
}

// RenameMember carries a group assignment over to a renamed tag.
func (r *TagGroupRepository) RenameMember(from, to string) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		var groupID int64
		err := tx.QueryRow("SELECT group_id FROM tag_group_members WHERE tag_name = ?", strings.TrimSpace(from)).Scan(&groupID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read assignment: %v", shared.ErrStore, err)
		}

		if _, err := tx.Exec("DELETE FROM tag_group_members WHERE tag_name = ?", strings.TrimSpace(from)); err != nil {
			return fmt.Errorf("%w: failed to drop assignment: %v", shared.ErrStore, err)
		}
		_, err = tx.Exec(`
			INSERT INTO tag_group_members (tag_name, group_id) VALUES (?, ?)
			ON CONFLICT(tag_name) DO NOTHING
		`, strings.TrimSpace(to), groupID)
		if err != nil {
			return fmt.Errorf("%w: failed to carry assignment: %v", shared.ErrStore, err)
		}
		return nil
	})
}

// Assignments maps folded tag names to their group.
func (r *TagGroupRepository) Assignments() (map[string]*models.TagGroup, error) {
	groups, err := r.List(nil)
	if err != nil {
		return nil, err
	}

	byTag := make(map[string]*models.TagGroup)
	for _, g := range groups {
		for _, tag := range g.Tags {
			byTag[shared.FoldKey(tag)] = g
		}
	}
	return byTag, nil
}

func (r *TagGroupRepository) members() (map[int64][]string, error) {
	rows, err := r.db.Query("SELECT group_id, tag_name FROM tag_group_members ORDER BY tag_name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tag group members: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	members := make(map[int64][]string)
	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag group member: %w", err)
		}
		members[id] = append(members[id], tag)
	}
	return members, rows.Err()
}
