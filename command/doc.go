// Package command implements the textual tool-command grammar that agents
// embed in their output:
//
//	SEND_EMAIL: to=<value> | subject=<value> | body=<value>
//	CREATE_EVENT: title=<value> | date=<value> | time=<value>
//	POST_TWEET: text=<value>
//
// Commands are recognized by a deterministic scanner anchored on the keyword
// token. Keywords are case-sensitive and whitespace around '|' and '=' is
// ignored. The trailing body of SEND_EMAIL and the text of POST_TWEET extend
// to the next keyword line (a line starting with an upper-case token followed
// by ':') or the end of the text. A command missing any parameter is not a
// command at all and is left in the text as prose.
package command
