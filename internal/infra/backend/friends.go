package backend

import (
	"context"
	"net/url"
)

// Friend is one entry in the session account's friend list.
type Friend struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Pending     bool   `json:"pending"`
}

// Friends returns the session account's friend list, pending requests
// included.
func (c *Client) Friends(ctx context.Context) ([]Friend, error) {
	var friends []Friend
	if err := c.getJSON(ctx, "/api/friends", &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// SendFriendRequest requests friendship with another user by username.
func (c *Client) SendFriendRequest(ctx context.Context, username string) error {
	return c.postJSON(ctx, "/api/friends/request", map[string]string{"username": username}, nil)
}

// AcceptFriendRequest accepts a pending request from the given account.
func (c *Client) AcceptFriendRequest(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/friends/"+url.PathEscape(id)+"/accept", nil, nil)
}

// RejectFriendRequest rejects a pending request from the given account.
func (c *Client) RejectFriendRequest(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/friends/"+url.PathEscape(id)+"/reject", nil, nil)
}

// RemoveFriend removes an accepted friend.
func (c *Client) RemoveFriend(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/friends/"+url.PathEscape(id)+"/remove", nil, nil)
}
