package service

import (
	"context"
	"fmt"

	"courtportal/internal/domain"
)

// ChannelService resolves the channel directory a user sees: the single
// broadcast channel, the groups they belong to, and one direct channel
// per counterpart they may talk to.
type ChannelService struct {
	users  domain.UserRepository
	groups domain.GroupRepository
}

func NewChannelService(users domain.UserRepository, groups domain.GroupRepository) *ChannelService {
	return &ChannelService{users: users, groups: groups}
}

// ListChannels returns every channel visible to the user. Direct
// channels are derived, not stored: administrators see one per active
// non-admin account, everyone else sees one per active administrator.
func (s *ChannelService) ListChannels(ctx context.Context, u *domain.User) ([]domain.Channel, error) {
	channels := []domain.Channel{{
		ID:          domain.BroadcastChannelID,
		Kind:        domain.ChannelBroadcast,
		DisplayName: "Announcements",
		IsReadOnly:  u.Role != domain.RoleAdmin,
	}}

	groups, err := s.groups.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	for _, g := range groups {
		channels = append(channels, domain.Channel{
			ID:           domain.GroupChannelID(g.ID),
			Kind:         domain.ChannelGroup,
			DisplayName:  g.Name,
			Participants: g.MemberIDs,
			GroupID:      g.ID,
		})
	}

	counterparts, err := s.counterparts(ctx, u)
	if err != nil {
		return nil, err
	}
	for _, other := range counterparts {
		channels = append(channels, domain.Channel{
			ID:           domain.DirectChannelID(u.ID, other.ID),
			Kind:         domain.ChannelDirect,
			DisplayName:  other.Name,
			Participants: []int64{u.ID, other.ID},
		})
	}
	return channels, nil
}

func (s *ChannelService) counterparts(ctx context.Context, u *domain.User) ([]*domain.User, error) {
	if u.Role == domain.RoleAdmin {
		all, err := s.users.ListActive(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		var res []*domain.User
		for _, other := range all {
			if other.ID != u.ID && other.Role != domain.RoleAdmin {
				res = append(res, other)
			}
		}
		return res, nil
	}
	admins, err := s.users.ListActive(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list administrators: %w", err)
	}
	return admins, nil
}

// CreateGroup creates a group channel. Admin only; the creator is always
// a member.
func (s *ChannelService) CreateGroup(ctx context.Context, caller *domain.User, name string, memberIDs []int64) (*domain.Group, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only administrators may create groups: %w", domain.ErrPermissionDenied)
	}
	if name == "" {
		return nil, fmt.Errorf("group name is required: %w", domain.ErrInvalidInput)
	}

	members := memberIDs
	found := false
	for _, id := range members {
		if id == caller.ID {
			found = true
			break
		}
	}
	if !found {
		members = append(members, caller.ID)
	}

	g := &domain.Group{
		Name:      name,
		CreatedBy: caller.ID,
		IsActive:  true,
		MemberIDs: members,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}
