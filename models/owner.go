package models

// Space is one of the three top-level ownership domains.
type Space string

const (
	SpacePublic Space = "public"
	SpaceGroup  Space = "group"
	SpaceUser   Space = "user"
)

// GroupOwnerID is the sentinel owner id shared by all group-space nodes.
const GroupOwnerID uint = 1

func (s Space) Valid() bool {
	return s == SpacePublic || s == SpaceGroup || s == SpaceUser
}

// Owner is the tagged ownership variant carried by every FileNode. Using the
// pair through OwnerFor keeps invalid space/id combinations out of the tree.
type Owner struct {
	Space  Space
	UserID uint
}

// OwnerFor derives the owner for a node created in the given space by the
// given user. Public nodes are owned by their uploader; group nodes share the
// sentinel group id.
func OwnerFor(space Space, userID uint) Owner {
	if space == SpaceGroup {
		return Owner{Space: space, UserID: GroupOwnerID}
	}
	return Owner{Space: space, UserID: userID}
}
