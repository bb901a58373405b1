package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core/session"
)

var errPurgeUnsupported = errors.New("the configured session store cannot purge expired sessions")

// listSessions prints one line per session with the identities signed in on it.
func (cli *commandLine) listSessions() error {
	ctx := context.Background()
	sids, err := cli.store.Sessions(ctx)
	if err != nil {
		return errors.Wrap(err, "listing sessions")
	}
	sort.Strings(sids)

	factory := session.NewFactory(cli.store)
	for _, sid := range sids {
		signedIn := make([]string, 0, len(session.Roles))
		for _, role := range session.Roles {
			sc, err := factory.Context(role, sid)
			if err != nil {
				return err
			}
			if err := sc.Hydrate(ctx); err != nil {
				return errors.Wrapf(err, "reading session %s", sid)
			}
			if id := sc.Identity(); id != nil {
				signedIn = append(signedIn, id.String())
			}
		}
		if len(signedIn) == 0 {
			signedIn = append(signedIn, "anonymous")
		}
		fmt.Fprintf(cli.out, "%s\t%s\n", sid, strings.Join(signedIn, ", "))
	}
	fmt.Fprintf(cli.out, "%d session(s)\n", len(sids))
	return nil
}

func (cli *commandLine) purgeSessions(sid string, all, expired bool) error {
	ctx := context.Background()

	if expired {
		purger, ok := cli.store.(session.Purger)
		if !ok {
			return errPurgeUnsupported
		}
		n, err := purger.Purge(ctx)
		if err != nil {
			return errors.Wrap(err, "purging expired sessions")
		}
		fmt.Fprintf(cli.out, "%d expired entr(ies) purged\n", n)
	}

	sids := make([]string, 0)
	if all {
		var err error
		if sids, err = cli.store.Sessions(ctx); err != nil {
			return errors.Wrap(err, "listing sessions")
		}
	} else if sid != "" {
		sids = append(sids, sid)
	}
	for _, s := range sids {
		if err := cli.store.Clear(ctx, s); err != nil {
			return errors.Wrapf(err, "clearing session %s", s)
		}
	}
	if len(sids) > 0 {
		fmt.Fprintf(cli.out, "%d session(s) purged\n", len(sids))
	}
	return nil
}
