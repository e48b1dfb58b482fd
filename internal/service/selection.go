package service

import (
	"github.com/mtlprog/worklens/internal/domain"
)

// uniqueIDs de-duplicates ids preserving first-seen order and dropping blanks.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// SelectResources produces the definitive ordered, de-duplicated resource set
// for a task from the workspace's current members and an optional
// caller-supplied subset.
//
// With no subset, all members are used in store order. With a subset, ids are
// de-duplicated and validated against membership, and the result follows the
// caller's order. Fewer than two valid resources is an error either way.
func SelectResources(
	members []*domain.WorkspaceResource,
	requested []string,
) ([]*domain.WorkspaceResource, []string, error) {
	if len(members) < domain.MinWorkspaceResources {
		return nil, nil, domain.ErrInsufficientResources
	}

	if len(requested) == 0 {
		ids := make([]string, len(members))
		for i, member := range members {
			ids[i] = member.ResourceID
		}
		return members, ids, nil
	}

	byID := make(map[string]*domain.WorkspaceResource, len(members))
	for _, member := range members {
		byID[member.ResourceID] = member
	}

	ids := uniqueIDs(requested)
	selected := make([]*domain.WorkspaceResource, 0, len(ids))
	for _, id := range ids {
		member, ok := byID[id]
		if !ok {
			return nil, nil, domain.ErrResourceNotInWorkspace
		}
		selected = append(selected, member)
	}

	if len(selected) < domain.MinWorkspaceResources {
		return nil, nil, domain.ErrInsufficientResources
	}

	return selected, ids, nil
}
