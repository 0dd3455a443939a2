// Package xmlfix rewrites the receiver list of TLC traffic routes in
// interface definition XML files.
package xmlfix

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultReceiverPort is the single receiver kept in every TLC route.
const DefaultReceiverPort = "TLC_SW.CARD_1.PORT_PROC"

const filePermissions = 0o644

// ErrNoRoutes is returned by FixFile when no TLC route was found.
var ErrNoRoutes = errors.New(`no TRAFFIC_ROUTE blocks with type="TLC"`)

var (
	tlcRoute      = regexp.MustCompile(`(<TRAFFIC_ROUTE\b[^>]*\btype="TLC"[^>]*>)([\s\S]*?)(</TRAFFIC_ROUTE>)`)
	receiverList  = regexp.MustCompile(`([ \t]*)<RECEIVERS_PORTS_LIST>([\s\S]*?)[ \t]*</RECEIVERS_PORTS_LIST>`)
	receiverEntry = regexp.MustCompile(`\n([ \t]+)<RECEIVER_PORT\b`)
)

// Result describes a FixFile run.
type Result struct {
	Routes     int
	BackupPath string
}

// Fix returns text with every TLC route's RECEIVERS_PORTS_LIST reduced to a
// single RECEIVER_PORT named port, and the number of routes matched.
func Fix(text, port string) (string, int) {
	if port == "" {
		port = DefaultReceiverPort
	}
	routes := 0
	out := tlcRoute.ReplaceAllStringFunc(text, func(route string) string {
		routes++
		g := tlcRoute.FindStringSubmatch(route)
		return g[1] + replaceReceivers(g[2], port) + g[3]
	})
	return out, routes
}

func replaceReceivers(body, port string) string {
	return receiverList.ReplaceAllStringFunc(body, func(list string) string {
		g := receiverList.FindStringSubmatch(list)
		indent, inner := g[1], g[2]

		var entryIndent string
		switch m := receiverEntry.FindStringSubmatch(inner); {
		case m != nil:
			entryIndent = m[1]
		case strings.Contains(indent, "\t"):
			entryIndent = indent + "\t"
		default:
			entryIndent = indent + "    "
		}

		var b strings.Builder
		b.WriteString(indent)
		b.WriteString("<RECEIVERS_PORTS_LIST>\n")
		b.WriteString(entryIndent)
		fmt.Fprintf(&b, "<RECEIVER_PORT receiverPortName=%q/>\n", port)
		b.WriteString(indent)
		b.WriteString("</RECEIVERS_PORTS_LIST>")
		return b.String()
	})
}

// FixFile applies Fix to path in place. The original is saved to
// <path>.bak first. When nothing matches the file is left untouched and
// ErrNoRoutes is returned.
func FixFile(path, port string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)
	updated, routes := Fix(text, port)
	if routes == 0 {
		return Result{}, ErrNoRoutes
	}

	res := Result{Routes: routes, BackupPath: path + ".bak"}
	if err := os.WriteFile(res.BackupPath, data, filePermissions); err != nil { //nolint:gosec // mirrors source file permissions
		return Result{}, fmt.Errorf("write backup: %w", err)
	}
	if err := os.WriteFile(path, []byte(updated), filePermissions); err != nil { //nolint:gosec // mirrors source file permissions
		return Result{}, fmt.Errorf("write %s: %w", path, err)
	}
	return res, nil
}
