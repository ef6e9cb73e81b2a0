package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sigitp-git/core-network-devops-agent/internal/config"
	"github.com/sigitp-git/core-network-devops-agent/internal/security"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

// Init writes a default config file, refusing to clobber an existing one.
func Init(path string, out io.Writer) int {
	if path == "" {
		path = "agent.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("config already exists: %s", path)))
		return 1
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(out, errorStyle.Render("create directory: "+err.Error()))
			return 1
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		fmt.Fprintln(out, errorStyle.Render("write config: "+err.Error()))
		return 1
	}

	fmt.Fprintln(out, agentStyle.Render("created "+path))
	fmt.Fprintln(out, mutedStyle.Render("edit the providers section, then run: agent chat"))
	return 0
}

// Tools prints the registered tools and their parameters.
func Tools(reg *tool.Registry, out io.Writer) int {
	specs := reg.Specs()
	fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Tools (%d)", len(specs))))
	for _, spec := range specs {
		fmt.Fprintf(out, "  %s\n", toolStyle.Render(spec.Name))
		fmt.Fprintf(out, "    %s\n", mutedStyle.Render(spec.Description))
		for _, name := range spec.ParamNames() {
			p := spec.Params[name]
			req := ""
			if p.Required {
				req = " (required)"
			}
			fmt.Fprintf(out, "      %-16s %s%s\n", name, string(p.Type), mutedStyle.Render(req))
		}
	}
	return 0
}

// Health runs the health check once and prints the report.
func Health(ctx context.Context, ag Agent, out io.Writer) int {
	printStatus(ctx, ag, out)
	report := ag.HealthCheck(ctx)
	if status, _ := report["status"].(string); status != "healthy" {
		return 1
	}
	return 0
}

// Token mints an API token for a user and role.
func Token(cfg config.ServerConfig, user, role string, expiry time.Duration, out io.Writer) int {
	if cfg.JWTSecret == "" {
		fmt.Fprintln(out, errorStyle.Render("server.jwtSecret is not configured"))
		return 1
	}
	if strings.TrimSpace(user) == "" {
		fmt.Fprintln(out, errorStyle.Render("user is required"))
		return 1
	}
	token, err := security.GenerateToken(user, role, []byte(cfg.JWTSecret), expiry)
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render(err.Error()))
		return 1
	}
	fmt.Fprintln(out, token)
	return 0
}

// Version prints the build identification.
func Version(version, buildTime string, out io.Writer) int {
	fmt.Fprintf(out, "core-network-devops-agent v%s (built %s)\n", version, buildTime)
	return 0
}
