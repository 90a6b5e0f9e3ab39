package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sanamente/catalogd/internal/catalog"
	"github.com/sanamente/catalogd/internal/domain"
	"github.com/sanamente/catalogd/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func (a *Application) checkAdmin() {
	const adminEmail = "admin@sanamente.local"
	const defaultPassword = "Catalogd1"

	var account domain.Account
	err := a.gormDB.Where("email = ?", adminEmail).First(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		if err := a.gormDB.Create(&domain.Account{
			Email:       adminEmail,
			Password:    string(hash),
			DisplayName: "Administrador",
			Status:      "enabled",
			LastLogin:   time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default admin account", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("email", adminEmail))
		}
	case err != nil:
		zap.L().Error("failed to query admin account", zap.Error(err))
	}
}

// sampleProducts is the starter catalog loaded into empty deployments when
// seeding is enabled.
var sampleProducts = []store.Document{
	{
		"name": "Manzanas Orgánicas", "tipo": "frutas", "quantity": "1 kg", "price": 850.0,
		"description": "Manzanas rojas cultivadas de forma orgánica, ricas en fibra y vitamina C.",
		"imageUrl":    "https://images.unsplash.com/photo-1560806887-1e4cd0b6cbd6?w=400",
	},
	{
		"name": "Bananas", "tipo": "frutas", "quantity": "1 kg", "price": 650.0,
		"description": "Bananas maduras, fuente natural de potasio y energía.",
		"imageUrl":    "https://images.unsplash.com/photo-1603833665858-e61d17a86224?w=400",
	},
	{
		"name": "Espinaca Orgánica", "tipo": "verduras", "quantity": "500 g", "price": 750.0,
		"description": "Espinaca fresca de cultivo orgánico, rica en hierro y vitaminas.",
		"imageUrl":    "https://images.unsplash.com/photo-1576045057995-568f588f82fb?w=400",
	},
	{
		"name": "Tomates Cherry", "tipo": "verduras", "quantity": "250 g", "price": 680.0,
		"description": "Tomates cherry dulces y jugosos, cultivados naturalmente.",
		"imageUrl":    "https://images.unsplash.com/photo-1592841200221-a6898f307baa?w=400",
	},
	{
		"name": "Granola x 500gr", "tipo": "alimento", "quantity": "20 u", "price": 7000.0,
		"description": "Con frutas y semillas.",
	},
	{
		"name": "Miel Pura", "tipo": "alimento", "quantity": "1 u", "price": 8200.0,
		"description": "Pura y natural.",
	},
	{
		"name": "Kombucha de Jengibre", "tipo": "bebida", "quantity": "500 ml", "price": 2400.0,
		"description": "Fermentada artesanalmente, sin azúcar agregada.",
	},
}

// checkSampleProducts seeds the catalog collection on first run. Each
// document goes through the regular store path so subscribers see them.
func (a *Application) checkSampleProducts() {
	if !a.appConfig.Catalog.SeedSamples {
		return
	}
	var count int64
	if err := a.gormDB.Model(&domain.StoreDocument{}).
		Where("collection = ?", catalog.Collection).
		Count(&count).Error; err != nil {
		zap.L().Error("failed to count catalog documents", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	ctx := context.Background()
	now := time.Now().UTC()
	for i, doc := range sampleProducts {
		fields := store.Document{}
		for k, v := range doc {
			fields[k] = v
		}
		// spread createdAt so the seeded list has a stable order
		fields["createdAt"] = now.Add(time.Duration(i) * time.Second)
		if _, err := a.docStore.AddDocument(ctx, catalog.Collection, fields); err != nil {
			zap.L().Error("failed to seed sample product", zap.Error(err))
			return
		}
	}
	zap.L().Info("seeded sample catalog", zap.Int("count", len(sampleProducts)))
}
