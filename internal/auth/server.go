package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// AuthTimeout is how long to wait for the user to complete auth
const AuthTimeout = 5 * time.Minute

const successPage = `<!DOCTYPE html>
<html>
<head><title>strava-stats</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1 style="color: #FC4C02;">Connected to Strava</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

// Authenticate runs the authorization code flow with a local callback
// server. The authorization URL is written to out for the user to open.
func Authenticate(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*Result, error) {
	addr, path, err := callbackAddr(cfg.RedirectURL)
	if err != nil {
		return nil, err
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, callbackHandler(state, codeChan, errChan))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			select {
			case errChan <- fmt.Errorf("callback server: %w", err):
			default:
			}
		}
	}()
	defer shutdownServer(server)

	fmt.Fprintf(out, "\nTo connect strava-stats to Strava, open this URL in your browser:\n\n  %s\n\nWaiting for authorization...\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	timer := time.NewTimer(AuthTimeout)
	defer timer.Stop()

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-timer.C:
		return nil, fmt.Errorf("authentication timeout after %v", AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	return &Result{Token: token, AthleteID: ExtractAthleteID(token)}, nil
}

func callbackHandler(state string, codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	fail := func(w http.ResponseWriter, status int, err error) {
		select {
		case errChan <- err:
		default:
		}
		http.Error(w, err.Error(), status)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			fail(w, http.StatusBadRequest, errors.New("state mismatch"))
			return
		}
		if msg := q.Get("error"); msg != "" {
			fail(w, http.StatusBadRequest, fmt.Errorf("authorization denied: %s", msg))
			return
		}
		code := q.Get("code")
		if code == "" {
			fail(w, http.StatusBadRequest, errors.New("no code in callback"))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, successPage)
		select {
		case codeChan <- code:
		default:
		}
	}
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
