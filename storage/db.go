package storage

import (
	"log"

	"coin-miniapp-system/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection and runs pending migrations.
// TranslateError is on so unique-key violations surface as gorm.ErrDuplicatedKey
// regardless of driver.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs all registered migrations. Exposed separately so tests can
// migrate an in-memory database.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		initialise,
		seedCatalog,
	})
	if err := m.Migrate(); err != nil {
		return err
	}
	log.Println("✅ Database migrated")
	return nil
}

var initialise = &gormigrate.Migration{
	ID: "202608201200-initialise",
	Migrate: func(db *gorm.DB) error {
		return db.AutoMigrate(
			&models.User{},
			&models.Referral{},
			&models.Task{},
			&models.UserTask{},
			&models.Clan{},
			&models.Battle{},
			&models.Invoice{},
			&models.Course{},
			&models.CoursePurchase{},
			&models.MiningSession{},
		)
	},
	Rollback: func(db *gorm.DB) error {
		return db.Migrator().DropTable(
			&models.User{},
			&models.Referral{},
			&models.Task{},
			&models.UserTask{},
			&models.Clan{},
			&models.Battle{},
			&models.Invoice{},
			&models.Course{},
			&models.CoursePurchase{},
			&models.MiningSession{},
		)
	},
}

// seedCatalog inserts the fixed task catalog and the initial course listing.
// Inserts skip rows whose code already exists, so re-running is safe.
var seedCatalog = &gormigrate.Migration{
	ID: "202608201210-seed-catalog",
	Migrate: func(db *gorm.DB) error {
		tasks := []models.Task{
			{Code: "invite_friend", Title: "Invite a friend", Kind: models.TaskKindReferral, Required: 1, RewardCoins: 2500},
			{Code: "invite_10_friends", Title: "Invite 10 friends", Kind: models.TaskKindReferral, Required: 10, RewardCoins: 25000},
			{Code: "invite_50_friends", Title: "Invite 50 friends", Kind: models.TaskKindReferral, Required: 50, RewardCoins: 150000},
			{Code: "invite_100_friends", Title: "Invite 100 friends", Kind: models.TaskKindReferral, Required: 100, RewardCoins: 400000},
			{Code: "join_channel", Title: "Join our Telegram channel", Kind: models.TaskKindSocial, Required: 1, RewardCoins: 1000, LinkURL: "https://t.me/example_channel"},
			{Code: "follow_x", Title: "Follow us on X", Kind: models.TaskKindSocial, Required: 1, RewardCoins: 1000, LinkURL: "https://x.com/example"},
		}
		for i := range tasks {
			tasks[i].ID = uuid.NewString()
			tasks[i].Active = true
			if err := db.Where("code = ?", tasks[i].Code).FirstOrCreate(&tasks[i]).Error; err != nil {
				return err
			}
		}

		courses := []models.Course{
			{Code: "web3-foundations", Title: "Web3 Foundations", PriceTON: decimal.NewFromFloat(9.5)},
			{Code: "ton-smart-contracts", Title: "TON Smart Contracts", PriceTON: decimal.NewFromFloat(19)},
		}
		for i := range courses {
			courses[i].ID = uuid.NewString()
			courses[i].Active = true
			if err := db.Where("code = ?", courses[i].Code).FirstOrCreate(&courses[i]).Error; err != nil {
				return err
			}
		}
		return nil
	},
	Rollback: func(db *gorm.DB) error {
		if err := db.Where("1 = 1").Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return db.Where("1 = 1").Delete(&models.Course{}).Error
	},
}
