package main

import (
	"context"
	"fmt"

	"github.com/factor8/TagDeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// TagsList lists every tag with its usage count and group.
func (r *Runner) TagsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	tags, err := r.library.Tags()
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tags, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Tags (%d)", len(tags)))
	for _, tag := range tags {
		group := ""
		if tag.Group != nil {
			group = tag.Group.Name
		}
		r.writePlain("%-30s %5d  %s\n", tag.Name, tag.UsageCount, group)
	}
	return nil
}

func tagAndIDs(cmd *cli.Command) (string, []int64, error) {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return "", nil, fmt.Errorf("%w: a tag and at least one track id are required", shared.ErrMissingArgument)
	}
	ids, err := parseIDs(args[1:])
	if err != nil {
		return "", nil, err
	}
	return args[0], ids, nil
}

// TagsAdd adds a tag to tracks.
func (r *Runner) TagsAdd(ctx context.Context, cmd *cli.Command) error {
	tag, ids, err := tagAndIDs(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	result, err := r.editor.BatchAddTag(ctx, ids, tag)
	if err != nil {
		return fmt.Errorf("failed to add tag: %w", err)
	}
	r.writeBatch("Tagged", result)
	return nil
}

// TagsRemove removes a tag from tracks.
func (r *Runner) TagsRemove(ctx context.Context, cmd *cli.Command) error {
	tag, ids, err := tagAndIDs(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	result, err := r.editor.BatchRemoveTag(ctx, ids, tag)
	if err != nil {
		return fmt.Errorf("failed to remove tag: %w", err)
	}
	r.writeBatch("Untagged", result)
	return nil
}

// TagsRename renames a tag everywhere.
func (r *Runner) TagsRename(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("%w: usage: tags rename <from> <to>", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	result, err := r.editor.RenameTag(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
	if err != nil {
		return fmt.Errorf("failed to rename tag: %w", err)
	}
	r.writeBatch("Renamed", result)
	return nil
}

func idAndValue(cmd *cli.Command) (int64, string, error) {
	if cmd.Args().Len() != 2 {
		return 0, "", fmt.Errorf("%w: a track id and a value are required", shared.ErrMissingArgument)
	}
	ids, err := parseIDs([]string{cmd.Args().Get(0)})
	if err != nil {
		return 0, "", err
	}
	if len(ids) != 1 {
		return 0, "", fmt.Errorf("%w: one track id is required", shared.ErrInvalidArgument)
	}
	return ids[0], cmd.Args().Get(1), nil
}

// TagsWrite replaces a track's raw comment field.
func (r *Runner) TagsWrite(ctx context.Context, cmd *cli.Command) error {
	id, raw, err := idAndValue(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.editor.WriteComment(ctx, id, raw); err != nil {
		return fmt.Errorf("failed to write comment: %w", err)
	}
	r.writePlain("✓ Comment of track %d written\n", id)
	return nil
}

// TagsText replaces a track's free text and keeps its tags.
func (r *Runner) TagsText(ctx context.Context, cmd *cli.Command) error {
	id, text, err := idAndValue(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.editor.SetCommentText(ctx, id, text); err != nil {
		return fmt.Errorf("failed to set comment text: %w", err)
	}
	r.writePlain("✓ Comment text of track %d set\n", id)
	return nil
}

// TagGroupsList lists tag groups.
func (r *Runner) TagGroupsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	groups, err := r.library.TagGroups()
	if err != nil {
		return fmt.Errorf("failed to list tag groups: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(groups, cmd.Bool("pretty"))
	}
	for _, g := range groups {
		r.writePlain("%-30s %s\n", g.Name, g.Color)
	}
	return nil
}

// TagGroupsCreate creates a tag group.
func (r *Runner) TagGroupsCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: group name is required", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	group, err := r.library.CreateTagGroup(name, cmd.String("color"))
	if err != nil {
		return fmt.Errorf("failed to create tag group: %w", err)
	}
	r.writePlain("✓ Tag group %q created (id %d)\n", group.Name, group.ID)
	return nil
}

// TagGroupsAssign moves a tag into a group.
func (r *Runner) TagGroupsAssign(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("%w: usage: tags groups assign <tag> [group]", shared.ErrMissingArgument)
	}
	tag, group := cmd.Args().Get(0), cmd.Args().Get(1)
	if err := r.open(); err != nil {
		return err
	}

	if err := r.library.AssignTag(tag, group); err != nil {
		return fmt.Errorf("failed to assign tag: %w", err)
	}
	if group == "" {
		r.writePlain("✓ Tag %q ungrouped\n", tag)
	} else {
		r.writePlain("✓ Tag %q moved to %q\n", tag, group)
	}
	return nil
}

// TagGroupsDelete deletes a tag group.
func (r *Runner) TagGroupsDelete(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: group name is required", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.library.DeleteTagGroup(name); err != nil {
		return fmt.Errorf("failed to delete tag group: %w", err)
	}
	r.writePlain("✓ Tag group %q deleted\n", name)
	return nil
}
