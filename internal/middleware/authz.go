package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/telemetry"
)

// AuthzDependencies provides the collaborators needed for authorization decisions.
type AuthzDependencies struct {
	IAM       iam.Service
	Campaigns repository.CampaignRepository
	AdSpaces  repository.AdSpaceRepository
	Metrics   *telemetry.ServerMetrics // optional
}

// resourceKind names the resource a route operates on, for attribute loading.
type resourceKind int

const (
	resourceNone resourceKind = iota
	resourceCampaign
	resourceAdSpace
)

// requirement is the capability a classified route demands.
type requirement struct {
	obj      string
	act      string
	kind     resourceKind
	id       string
	methodOK bool
}

// NewAuthzMiddleware constructs a chi middleware that enforces the capability
// policy for every protected route.
//
// The decision consults ONLY the acting role resolved earlier in the chain.
// For detail routes the resource is loaded once here; its status and an
// ownership flag become the attributes that policy scope expressions evaluate
// against, and the loaded model is stashed in context so handlers do not
// fetch it again.
//
// Unmatched paths pass through; their handlers are either public (healthz,
// login) or enforce their own requirements.
func NewAuthzMiddleware(deps AuthzDependencies) (func(http.Handler) http.Handler, error) {
	if deps.IAM == nil {
		return nil, errors.New("authz middleware requires the IAM service")
	}
	if deps.Campaigns == nil || deps.AdSpaces == nil {
		return nil, errors.New("authz middleware requires campaign and ad space repositories")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, matched := classifyRequest(r)
			if !matched {
				next.ServeHTTP(w, r)
				return
			}
			if !req.methodOK {
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}

			ctx := r.Context()

			principal, ok := auth.GetUserFromContext(ctx)
			if !ok || principal.PrincipalID == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			acting, ok := auth.GetActingRole(ctx)
			if !ok {
				// The acting-role middleware runs before this one; a missing
				// value here is a wiring bug, not a client error.
				http.Error(w, "acting role not resolved", http.StatusInternalServerError)
				return
			}

			attrs := map[string]interface{}{}
			switch req.kind {
			case resourceCampaign:
				campaign, err := deps.Campaigns.GetByID(ctx, req.id)
				if err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						http.NotFound(w, r)
						return
					}
					http.Error(w, "authorization lookup failed", http.StatusInternalServerError)
					return
				}
				attrs["status"] = campaign.Status
				attrs["own"] = strconv.FormatBool(campaign.OwnerID == principal.InternalID)
				ctx = WithCampaign(ctx, campaign)
			case resourceAdSpace:
				adSpace, err := deps.AdSpaces.GetByID(ctx, req.id)
				if err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						http.NotFound(w, r)
						return
					}
					http.Error(w, "authorization lookup failed", http.StatusInternalServerError)
					return
				}
				attrs["status"] = adSpace.Status
				attrs["own"] = strconv.FormatBool(adSpace.OwnerID == principal.InternalID)
				ctx = WithAdSpace(ctx, adSpace)
			}

			allowed, err := deps.IAM.Authorize(ctx, acting.Role, req.obj, req.act, attrs)
			if err != nil {
				http.Error(w, "authorization error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				if deps.Metrics != nil {
					deps.Metrics.RecordAuthzDenial(ctx, req.obj, req.act)
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

// classifyRequest maps a route to the capability it requires.
//
// Runs before chi populates URL params (global middleware), so detail IDs are
// extracted from path segments directly.
func classifyRequest(r *http.Request) (requirement, bool) {
	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")
	if parts[0] == "" {
		return requirement{}, false
	}

	switch parts[0] {
	case "dashboard":
		if r.Method == http.MethodGet {
			return requirement{obj: auth.ObjectTypeDashboard, act: auth.DashboardView, methodOK: true}, true
		}
		return requirement{}, true

	case "campaigns":
		return classifyResource(r, parts, auth.ObjectTypeCampaign, resourceCampaign,
			auth.CampaignCreate, auth.CampaignList, auth.CampaignRead, auth.CampaignUpdate, auth.CampaignArchive), true

	case "adspaces":
		return classifyResource(r, parts, auth.ObjectTypeAdSpace, resourceAdSpace,
			auth.AdSpaceCreate, auth.AdSpaceList, auth.AdSpaceRead, auth.AdSpaceUpdate, auth.AdSpaceArchive), true

	case "reports":
		// The minimum capability; handlers widen to report:view-all when the
		// acting role has it, switching from owned-only to marketplace-wide.
		if r.Method == http.MethodGet {
			return requirement{obj: auth.ObjectTypeReport, act: auth.ReportViewOwn, methodOK: true}, true
		}
		return requirement{}, true

	case "auth":
		return classifyAuthRoute(r, parts)

	case "admin":
		return classifyAdminRoute(r, parts)
	}

	return requirement{}, false
}

// classifyResource handles the shared campaign/adspace route shapes.
func classifyResource(r *http.Request, parts []string, obj string, kind resourceKind,
	create, list, read, update, archive string,
) requirement {
	switch len(parts) {
	case 1:
		switch r.Method {
		case http.MethodPost:
			return requirement{obj: obj, act: create, methodOK: true}
		case http.MethodGet:
			return requirement{obj: obj, act: list, methodOK: true}
		}
	case 2:
		id := parts[1]
		switch r.Method {
		case http.MethodGet:
			return requirement{obj: obj, act: read, kind: kind, id: id, methodOK: true}
		case http.MethodPut, http.MethodPatch:
			return requirement{obj: obj, act: update, kind: kind, id: id, methodOK: true}
		case http.MethodDelete:
			return requirement{obj: obj, act: archive, kind: kind, id: id, methodOK: true}
		}
	}
	return requirement{}
}

// classifyAuthRoute protects the self-service account surface. Login, logout,
// and token minting stay unmatched: login is unauthenticated by nature, and
// the others only need authentication, which their handlers verify.
func classifyAuthRoute(r *http.Request, parts []string) (requirement, bool) {
	if len(parts) < 2 {
		return requirement{}, false
	}

	switch parts[1] {
	case "whoami":
		if r.Method == http.MethodGet {
			return requirement{obj: auth.ObjectTypeAccount, act: auth.AccountReadSelf, methodOK: true}, true
		}
		return requirement{}, true
	case "role":
		if len(parts) == 3 && parts[2] == "switch" {
			if r.Method == http.MethodPost {
				return requirement{obj: auth.ObjectTypeAccount, act: auth.AccountUpdateSelf, methodOK: true}, true
			}
			return requirement{}, true
		}
		if r.Method == http.MethodGet {
			return requirement{obj: auth.ObjectTypeAccount, act: auth.AccountReadSelf, methodOK: true}, true
		}
		return requirement{}, true
	case "preference":
		switch r.Method {
		case http.MethodGet:
			return requirement{obj: auth.ObjectTypeAccount, act: auth.AccountReadSelf, methodOK: true}, true
		case http.MethodPut, http.MethodDelete:
			return requirement{obj: auth.ObjectTypeAccount, act: auth.AccountUpdateSelf, methodOK: true}, true
		}
		return requirement{}, true
	}

	return requirement{}, false
}

// classifyAdminRoute maps admin subtrees to their management capabilities.
func classifyAdminRoute(r *http.Request, parts []string) (requirement, bool) {
	if len(parts) < 2 {
		return requirement{}, false
	}

	var act string
	switch parts[1] {
	case "users":
		act = auth.AdminUserManage
	case "grants":
		act = auth.AdminRoleGrant
	case "orgs":
		act = auth.AdminOrgManage
	case "sessions":
		act = auth.AdminSessionRevoke
	case "cache":
		act = auth.AdminCacheRefresh
	default:
		return requirement{}, false
	}

	return requirement{obj: auth.ObjectTypeAdmin, act: act, methodOK: true}, true
}

type campaignContextKey struct{}
type adSpaceContextKey struct{}

// WithCampaign stashes a loaded campaign for downstream handlers.
func WithCampaign(ctx context.Context, c *models.Campaign) context.Context {
	return context.WithValue(ctx, campaignContextKey{}, c)
}

// CampaignFromContext returns the campaign loaded during authorization.
func CampaignFromContext(ctx context.Context) (*models.Campaign, bool) {
	c, ok := ctx.Value(campaignContextKey{}).(*models.Campaign)
	return c, ok
}

// WithAdSpace stashes a loaded ad space for downstream handlers.
func WithAdSpace(ctx context.Context, a *models.AdSpace) context.Context {
	return context.WithValue(ctx, adSpaceContextKey{}, a)
}

// AdSpaceFromContext returns the ad space loaded during authorization.
func AdSpaceFromContext(ctx context.Context) (*models.AdSpace, bool) {
	a, ok := ctx.Value(adSpaceContextKey{}).(*models.AdSpace)
	return a, ok
}
