package dispatch

import (
	"context"
	"strings"

	"github.com/m3rciful/geopal/internal/event"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/notify"
	"github.com/m3rciful/geopal/internal/replies"
)

// Command names understood by the router.
const (
	CmdStart         = "/start"
	CmdHelp          = "/help"
	CmdAddFriend     = "/add_friend"
	CmdFriendList    = "/friend_list"
	CmdRemoveFriend  = "/remove_friend"
	CmdShareLocation = "/share_location"
)

// CommandInfo describes a command for the client command menu.
type CommandInfo struct {
	Name        string
	Description string
	Hidden      bool
}

// Commands lists every command the router handles.
var Commands = []CommandInfo{
	{Name: CmdStart, Description: "Start the bot", Hidden: true},
	{Name: CmdHelp, Description: "Show what I can do"},
	{Name: CmdAddFriend, Description: "Send a friend request"},
	{Name: CmdFriendList, Description: "Show your friends"},
	{Name: CmdRemoveFriend, Description: "Remove a friend"},
	{Name: CmdShareLocation, Description: "Share your city with friends"},
}

// command runs a known command. Any command other than /add_friend ends a
// live wizard first; /add_friend replaces it.
func (r *Router) command(ctx context.Context, ev event.Event) error {
	cmd := ev.(event.Command)
	actor := cmd.Actor
	if cmd.Name == CmdAddFriend {
		return r.wizard.Start(ctx, actor)
	}
	r.wizard.Discard(ctx, actor.ID)

	switch cmd.Name {
	case CmdStart, CmdHelp:
		return r.say(ctx, actor, replies.Greeting, nil)
	case CmdFriendList:
		return r.friendList(ctx, actor)
	case CmdRemoveFriend:
		return r.removalList(ctx, actor)
	case CmdShareLocation:
		return r.locationPrompt(ctx, actor)
	}
	return r.unknownCommand(ctx, ev)
}

func (r *Router) friendList(ctx context.Context, actor identity.Profile) error {
	friends := r.relations.Friends(actor.ID)
	if len(friends) == 0 {
		return r.say(ctx, actor, replies.NoFriends, nil)
	}
	lines := make([]string, 0, len(friends))
	for i, f := range friends {
		lines = append(lines, replies.FriendLine(i+1, f))
	}
	return r.say(ctx, actor, strings.Join(lines, "\n"), nil)
}

func (r *Router) locationPrompt(ctx context.Context, actor identity.Profile) error {
	if len(r.relations.Friends(actor.ID)) == 0 {
		return r.say(ctx, actor, replies.NoFriends, nil)
	}
	controls := &notify.Controls{Reply: [][]notify.ReplyButton{
		{{Text: replies.BtnShareLocation, RequestLocation: true}},
		{{Text: replies.BtnAbortKeyword}},
	}}
	return r.say(ctx, actor, replies.ShareLocationPrompt, controls)
}

func removeReply() *notify.Controls {
	return &notify.Controls{RemoveReply: true}
}
