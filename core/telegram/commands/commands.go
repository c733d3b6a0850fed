package commands

// Command describes a bot command shown in the client menu. Routing happens
// elsewhere; the registry only knows names and metadata.
type Command struct {
	Description string
	Hidden      bool
	Aliases     []string
}
