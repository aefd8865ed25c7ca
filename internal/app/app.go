package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/phenrril/joyeria/internal/adapters/httpserver"
	"github.com/phenrril/joyeria/internal/adapters/repo/postgres"
	"github.com/phenrril/joyeria/internal/config"
	"github.com/phenrril/joyeria/internal/usecase"
	"github.com/phenrril/joyeria/internal/variants"
)

type App struct {
	DB          *gorm.DB
	Config      config.Config
	ProductUC   *usecase.ProductUC
	MaterialUC  *usecase.MaterialUC
	MatrixUC    *usecase.MatrixUC
	CustomerUC  *usecase.CustomerUC
	OAuthConfig *oauth2.Config
}

func NewApp(db *gorm.DB, cfg config.Config) *App {
	prodRepo := postgres.NewProductRepo(db)
	matRepo := postgres.NewMaterialRepo(db)
	custRepo := postgres.NewCustomerRepo(db)

	var oauthCfg *oauth2.Config
	if cfg.GoogleLoginEnabled() {
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	} else {
		log.Warn().Msg("GOOGLE_CLIENT_ID/SECRET not set, google login disabled")
	}

	return &App{
		DB:          db,
		Config:      cfg,
		ProductUC:   &usecase.ProductUC{Products: prodRepo, Materials: matRepo},
		MaterialUC:  &usecase.MaterialUC{Materials: matRepo},
		MatrixUC:    &usecase.MatrixUC{Materials: matRepo, Catalog: variants.DefaultCatalog},
		CustomerUC:  &usecase.CustomerUC{Customers: custRepo},
		OAuthConfig: oauthCfg,
	}
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.ProductUC, a.MaterialUC, a.MatrixUC, a.CustomerUC, httpserver.Config{
		AdminAPIKey:        a.Config.AdminAPIKey,
		AdminAllowedEmails: a.Config.AdminAllowedEmails,
		AdminSecret:        a.Config.AdminSecret,
		BaseURL:            a.Config.BaseURL,
		SecureCookies:      a.Config.IsProduction(),
		OAuth:              a.OAuthConfig,
	})
}

var defaultMaterials = []usecase.MaterialInput{
	{Name: "Gold 24K", PricePerGram: "75.50"},
	{Name: "Gold 18K", PricePerGram: "56.60"},
	{Name: "Silver 925", PricePerGram: "0.95"},
	{Name: "Platinum", PricePerGram: "31.20"},
}

// MigrateAndSeed creates the schema and, on an empty materials table, the
// default price list.
func (a *App) MigrateAndSeed(ctx context.Context) error {
	if err := postgres.Migrate(a.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	existing, err := a.MaterialUC.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, in := range defaultMaterials {
		if _, err := a.MaterialUC.Create(ctx, in); err != nil {
			return fmt.Errorf("seed material %s: %w", in.Name, err)
		}
	}
	log.Info().Int("materials", len(defaultMaterials)).Msg("seeded default materials")
	return nil
}
