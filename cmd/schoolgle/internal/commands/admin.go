package commands

import (
	"context"
	"fmt"

	"github.com/schoolgle/schoolgle/internal/apikey"
	apikeydomain "github.com/schoolgle/schoolgle/internal/apikey/domain"
	"github.com/schoolgle/schoolgle/internal/organization"
	orgdomain "github.com/schoolgle/schoolgle/internal/organization/domain"
)

type APIKeyCmd struct {
	Create APIKeyCreateCmd `cmd:"" help:"Issue a new admin API key"`
	Revoke APIKeyRevokeCmd `cmd:"" help:"Revoke an API key"`
	List   APIKeyListCmd   `cmd:"" help:"List API keys"`
}

type APIKeyCreateCmd struct {
	Name string `help:"Human readable key name." required:""`
	Role string `help:"Role granted to the key." enum:"admin,support" default:"support"`
}

func (a *APIKeyCreateCmd) Run(ctx context.Context, g *Globals) error {
	var svc apikeydomain.Service
	return withApp(ctx, g, apikey.Module, func(ctx context.Context) error {
		secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: a.Name, Role: a.Role})
		if err != nil {
			return err
		}
		// the raw key is only ever shown here
		return printJSON(secret)
	}, &svc)
}

type APIKeyRevokeCmd struct {
	KeyID string `arg:"" help:"Key id to revoke."`
}

func (a *APIKeyRevokeCmd) Run(ctx context.Context, g *Globals) error {
	var svc apikeydomain.Service
	return withApp(ctx, g, apikey.Module, func(ctx context.Context) error {
		if err := svc.Revoke(ctx, a.KeyID); err != nil {
			return err
		}
		fmt.Printf("revoked %s\n", a.KeyID)
		return nil
	}, &svc)
}

type APIKeyListCmd struct{}

func (a *APIKeyListCmd) Run(ctx context.Context, g *Globals) error {
	var svc apikeydomain.Service
	return withApp(ctx, g, apikey.Module, func(ctx context.Context) error {
		keys, err := svc.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(keys)
	}, &svc)
}

type OrgCmd struct {
	Create OrgCreateCmd `cmd:"" help:"Create an organization"`
}

type OrgCreateCmd struct {
	Name string `help:"Organization name." required:""`
	Type string `help:"Organization type." enum:"school,trust,local_authority" default:"school"`
}

func (o *OrgCreateCmd) Run(ctx context.Context, g *Globals) error {
	var svc orgdomain.Service
	return withApp(ctx, g, organization.Module, func(ctx context.Context) error {
		org, err := svc.Create(ctx, orgdomain.CreateRequest{Name: o.Name, Type: orgdomain.OrganizationType(o.Type)})
		if err != nil {
			return err
		}
		return printJSON(org)
	}, &svc)
}
