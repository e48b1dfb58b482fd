package service_test

import (
	"testing"

	"github.com/mtlprog/worklens/internal/domain"
	"github.com/mtlprog/worklens/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(resourceID string) *domain.WorkspaceResource {
	return &domain.WorkspaceResource{
		ResourceID: resourceID,
		Resource:   domain.ResourceSnapshot{ID: resourceID, Type: "paper", Title: "Resource " + resourceID},
	}
}

func TestSelectResources_AllMembersWhenNoSubset(t *testing.T) {
	members := []*domain.WorkspaceResource{member("r1"), member("r2"), member("r3")}

	selected, ids, err := service.SelectResources(members, nil)
	require.NoError(t, err)
	assert.Len(t, selected, 3)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids)
}

func TestSelectResources_InsufficientMembers(t *testing.T) {
	members := []*domain.WorkspaceResource{member("r1")}

	_, _, err := service.SelectResources(members, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientResources)
}

func TestSelectResources_SubsetKeepsCallerOrder(t *testing.T) {
	members := []*domain.WorkspaceResource{member("r1"), member("r2"), member("r3")}

	selected, ids, err := service.SelectResources(members, []string{"r3", "r1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1"}, ids)
	assert.Equal(t, "r3", selected[0].ResourceID)
	assert.Equal(t, "r1", selected[1].ResourceID)
}

func TestSelectResources_SubsetDeduplicated(t *testing.T) {
	members := []*domain.WorkspaceResource{member("r1"), member("r2"), member("r3")}

	_, ids, err := service.SelectResources(members, []string{"r2", "r2", "r1", "r2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, ids)
}

func TestSelectResources_ResourceNotInWorkspace(t *testing.T) {
	members := []*domain.WorkspaceResource{member("r1"), member("r2")}

	_, _, err := service.SelectResources(members, []string{"r1", "r9"})
	assert.ErrorIs(t, err, domain.ErrResourceNotInWorkspace)
}

func TestSelectResources_SubsetTooSmallAfterDedup(t *testing.T) {
	members := []*domain.WorkspaceResource{member("r1"), member("r2"), member("r3")}

	_, _, err := service.SelectResources(members, []string{"r1", "r1"})
	assert.ErrorIs(t, err, domain.ErrInsufficientResources)
}
