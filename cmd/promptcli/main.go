// Command promptcli submits a single prompt through the gateway from the
// terminal. It drives the same composer and extractor the browser shell
// uses, which makes it handy for scripting and for checking a deployment
// end to end.
//
// The prompt is taken from the remaining arguments, or from stdin when
// none are given:
//
//	promptcli -email demo@example.com "count from 1 to 5"
//	echo "count from 1 to 5" | promptcli -token $TOKEN
//
// The password is read from PROMPTTESTER_PASSWORD when -email is used.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tonyxmella66/prompt-tester/pkg/api"
	"github.com/tonyxmella66/prompt-tester/pkg/client"
	"github.com/tonyxmella66/prompt-tester/pkg/extract"
	"github.com/tonyxmella66/prompt-tester/pkg/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	gatewayURL := flag.String("gateway", "http://localhost:8080", "gateway base URL")
	providerURL := flag.String("provider", "", "auth provider base URL (required with -email)")
	email := flag.String("email", "", "sign in with this email; password from PROMPTTESTER_PASSWORD")
	token := flag.String("token", "", "use an existing access token instead of signing in")
	model := flag.String("model", api.Models[0], "model to invoke")
	temperature := flag.String("temperature", "1.0", "sampling temperature, 0 to 2")
	webSearch := flag.Bool("web-search", false, "enable the web search tool")
	raw := flag.Bool("raw", false, "print the raw JSON response instead of the extracted text")
	timeout := flag.Duration("timeout", 120*time.Second, "invocation timeout")
	flag.Parse()

	prompt, err := readPrompt(flag.Args())
	if err != nil {
		return err
	}

	temp, err := api.ParseTemperature(*temperature)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source, err := buildSession(ctx, *token, *providerURL, *email)
	if err != nil {
		return err
	}

	composer, err := client.New(client.Config{
		Endpoint: *gatewayURL,
		Timeout:  *timeout,
	}, source)
	if err != nil {
		return err
	}

	env := composer.InvokeModel(ctx, api.ModelRequest{
		Prompt:      prompt,
		Model:       *model,
		Temperature: temp,
		WebSearch:   *webSearch,
	})
	if env.Failed() {
		return fmt.Errorf("%s", env.Error)
	}

	if *raw {
		fmt.Println(string(env.Data))
		return nil
	}
	fmt.Println(extract.OutputText(env.Data))
	return nil
}

// readPrompt joins the arguments, falling back to stdin.
func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("no prompt given; pass it as an argument or on stdin")
	}
	return prompt, nil
}

// buildSession resolves the bearer credential: an explicit token wins,
// otherwise a password sign-in against the provider.
func buildSession(ctx context.Context, token, providerURL, email string) (session.Source, error) {
	if token != "" {
		return session.Static(token, session.User{}), nil
	}
	if email == "" {
		return nil, fmt.Errorf("either -token or -email is required")
	}
	if providerURL == "" {
		return nil, fmt.Errorf("-provider is required with -email")
	}
	password := os.Getenv("PROMPTTESTER_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("PROMPTTESTER_PASSWORD is not set")
	}

	provider, err := session.NewClient(session.Config{BaseURL: providerURL})
	if err != nil {
		return nil, err
	}
	if _, err := provider.SignIn(ctx, email, password); err != nil {
		return nil, err
	}
	return provider, nil
}
