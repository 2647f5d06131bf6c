package services

import (
	"testing"

	"skystore/models"
)

func TestCanAccess(t *testing.T) {
	admin := models.Principal{ID: 1, Role: models.RoleAdmin, IsActive: true}
	member := models.Principal{ID: 2, Role: models.RoleMember, IsActive: true}
	public := models.Principal{ID: 3, Role: models.RolePublic, IsActive: true}
	pending := models.Principal{ID: 4, Role: models.RolePending, IsActive: false}

	cases := []struct {
		name      string
		principal models.Principal
		owner     models.Owner
		want      bool
	}{
		{"admin reaches user space of others", admin, models.Owner{Space: models.SpaceUser, UserID: 2}, true},
		{"admin reaches group space", admin, models.Owner{Space: models.SpaceGroup, UserID: models.GroupOwnerID}, true},
		{"owner reaches own user space", member, models.Owner{Space: models.SpaceUser, UserID: 2}, true},
		{"member cannot reach another user space", member, models.Owner{Space: models.SpaceUser, UserID: 3}, false},
		{"member reaches group space", member, models.Owner{Space: models.SpaceGroup, UserID: models.GroupOwnerID}, true},
		{"public role cannot reach group space", public, models.Owner{Space: models.SpaceGroup, UserID: models.GroupOwnerID}, false},
		{"active account reaches public space", public, models.Owner{Space: models.SpacePublic, UserID: 9}, true},
		{"inactive account cannot reach public space", pending, models.Owner{Space: models.SpacePublic, UserID: 9}, false},
		{"pending cannot reach group space", pending, models.Owner{Space: models.SpaceGroup, UserID: models.GroupOwnerID}, false},
		{"unknown space denied", member, models.Owner{Space: "archive", UserID: 2}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccess(tc.principal, tc.owner); got != tc.want {
				t.Fatalf("CanAccess(%+v, %+v) = %v, want %v", tc.principal, tc.owner, got, tc.want)
			}
		})
	}
}
