package bootstrap

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/acadrec/devstack/pkg/stack"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Banner prints a progress banner for one pipeline phase
func Banner(w io.Writer, text string) {
	headerColor.Fprintf(w, "==> %s\n", text)
}

// Warnf prints an operator-facing warning line
func Warnf(w io.Writer, format string, args ...interface{}) {
	warningColor.Fprintf(w, "WARN: "+format+"\n", args...)
}

// RenderReport prints the per-service status table, the reachable
// endpoints, and the follow-up command cheat-sheet
func RenderReport(w io.Writer, services []stack.Service, statuses []stack.ServiceStatus) {
	RenderStatusTable(w, statuses)

	headerColor.Fprintln(w, "\nEndpoints")
	for _, svc := range services {
		if svc.Endpoint == "" {
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", svc.Name, svc.Endpoint)
		if svc.Probe != nil && svc.Probe.Type == stack.ProbeHTTP {
			fmt.Fprintf(w, "  %s health: %s\n", svc.Name, svc.Probe.Target)
		}
	}

	headerColor.Fprintln(w, "\nNext steps")
	fmt.Fprintln(w, "  devstack logs -f        tail service logs")
	fmt.Fprintln(w, "  devstack down           stop the stack")
	fmt.Fprintln(w, "  devstack down --volumes stop the stack and wipe volumes")
}

// RenderStatusTable prints the per-service status table
func RenderStatusTable(w io.Writer, statuses []stack.ServiceStatus) {
	headerColor.Fprintln(w, "\nStack status")

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tSTATE\tHEALTH\tPORTS")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, renderState(s), s.Health, s.Ports)
	}
	tw.Flush()
}

func renderState(s stack.ServiceStatus) string {
	switch s.State {
	case stack.ServiceRunning:
		return successColor.Sprint(string(s.State))
	case stack.ServiceExited:
		if s.ExitCode != 0 {
			return errorColor.Sprintf("%s (%d)", s.State, s.ExitCode)
		}
		return string(s.State)
	case stack.ServiceRestarting:
		return warningColor.Sprint(string(s.State))
	default:
		return string(s.State)
	}
}
