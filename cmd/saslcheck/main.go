// saslcheck exercises a SASL deployment config end to end: it builds the
// server side from a config file and user database, the client side from
// command-line credentials, and runs the full exchange in process. Useful
// for checking a user database entry or a config file before rolling it
// out to a real listener.
//
//	saslcheck -config sasl.yaml -mechanism PLAIN -user alice -password secret
//	saslcheck -hash-password secret
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	sasl "github.com/maxpert/sasl-go"
	"github.com/maxpert/sasl-go/authfile"
	"github.com/maxpert/sasl-go/config"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Configuration file path (YAML)")
		mechanism    = flag.String("mechanism", sasl.Plain, "Mechanism to exercise")
		user         = flag.String("user", "", "Authentication identity")
		password     = flag.String("password", "", "Password or bearer token")
		authzid      = flag.String("authzid", "", "Authorization identity (optional)")
		trace        = flag.String("trace", "", "ANONYMOUS trace string")
		host         = flag.String("host", "", "OAUTHBEARER host hint")
		port         = flag.Int("port", 0, "OAUTHBEARER port hint")
		hashPassword = flag.String("hash-password", "", "Print a bcrypt hash for the given password and exit")
		verbose      = flag.Bool("verbose", false, "Log every exchange step")
	)
	flag.Parse()

	if *hashPassword != "" {
		hash, err := authfile.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "saslcheck: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	log := zap.NewNop()
	if *verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "saslcheck: %v\n", err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "saslcheck: %v\n", err)
		os.Exit(1)
	}

	client, server, err := buildPair(cfg, pairParams{
		mechanism: *mechanism,
		user:      *user,
		password:  *password,
		authzid:   *authzid,
		trace:     *trace,
		host:      *host,
		port:      *port,
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "saslcheck: %v\n", err)
		os.Exit(1)
	}

	cs := sasl.NewClientSession(client, sasl.WithLogger(log))
	ss := sasl.NewServerSession(server, sasl.WithLogger(log))
	if err := runExchange(cs, ss); err != nil {
		fmt.Fprintf(os.Stderr, "saslcheck: %s exchange failed: %v\n", *mechanism, err)
		os.Exit(1)
	}
	fmt.Printf("%s exchange succeeded in %d client step(s)\n", *mechanism, cs.Steps())
}

type pairParams struct {
	mechanism string
	user      string
	password  string
	authzid   string
	trace     string
	host      string
	port      int
}

// buildPair constructs the client and server halves of one exchange from
// the deployment config and command-line credentials.
func buildPair(cfg *config.Config, p pairParams, log *zap.Logger) (sasl.Client, sasl.Server, error) {
	if !cfg.Enabled(p.mechanism) {
		return nil, nil, fmt.Errorf("mechanism %s is not enabled in the config", p.mechanism)
	}

	var users *authfile.File
	if cfg.UsersFile != "" {
		var err error
		if users, err = authfile.Open(cfg.UsersFile, log); err != nil {
			return nil, nil, err
		}
	}

	switch p.mechanism {
	case sasl.Plain:
		cred, err := sasl.NewCredentialWithAuthzID(p.authzid, p.user, []byte(p.password))
		if err != nil {
			return nil, nil, err
		}
		client, err := sasl.NewPlainClient(cred)
		if err != nil {
			return nil, nil, err
		}
		return client, sasl.NewPlainServer(users.PlainAuthenticator()), nil
	case sasl.Login:
		cred, err := sasl.NewCredential(p.user, []byte(p.password))
		if err != nil {
			return nil, nil, err
		}
		client, err := sasl.NewLoginClient(cred)
		if err != nil {
			return nil, nil, err
		}
		return client, sasl.NewLoginServer(users.LoginAuthenticator()), nil
	case sasl.Anonymous:
		client, err := sasl.NewAnonymousClient(p.trace)
		if err != nil {
			return nil, nil, err
		}
		return client, sasl.NewAnonymousServer(nil), nil
	case sasl.External:
		client, err := sasl.NewExternalClient(p.authzid)
		if err != nil {
			return nil, nil, err
		}
		return client, sasl.NewExternalServer(nil), nil
	case sasl.OAuthBearer:
		cred, err := sasl.NewCredentialWithAuthzID(p.authzid, p.user, []byte(p.password))
		if err != nil {
			return nil, nil, err
		}
		client, err := sasl.NewOAuthBearerClient(cred, p.host, p.port)
		if err != nil {
			return nil, nil, err
		}
		scope := cfg.OAuth.Scope
		server := sasl.NewOAuthBearerServer(func(opts sasl.OAuthBearerOptions) *sasl.OAuthBearerError {
			if opts.Token == "" {
				return &sasl.OAuthBearerError{Status: "invalid_token", Schemes: "bearer", Scope: scope}
			}
			return nil
		})
		return client, server, nil
	default:
		return nil, nil, fmt.Errorf("unknown mechanism %q", p.mechanism)
	}
}

// runExchange pumps bytes between a client and a server session until both
// sides finish, the way a transport would across a real connection.
func runExchange(client, server *sasl.Session) error {
	out, err := client.Step(nil)
	if err != nil {
		return err
	}
	response := out.Payload

	for {
		ch, err := server.Step(response)
		if err != nil {
			return err
		}
		if server.Finished() && client.Finished() {
			return nil
		}
		if client.Finished() && ch.Payload == nil {
			return nil
		}

		out, err = client.Step(ch.Payload)
		if err != nil {
			// The client may still owe the server an acknowledgment (the
			// OAUTHBEARER failure handshake) before the error is final.
			if out.Payload != nil {
				if _, serr := server.Step(out.Payload); serr != nil {
					return serr
				}
			}
			return err
		}
		response = out.Payload
	}
}
