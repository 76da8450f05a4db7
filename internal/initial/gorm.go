package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"ReviewQA/internal/config"
	"ReviewQA/internal/modules/qa/domain/escalation"
	"ReviewQA/internal/modules/qa/domain/query"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitGorm opens the MySQL connection and migrates the qa tables. The chunk
// and collection tables are owned by the ingestion service; migrating them
// here only matters for fresh local environments.
func InitGorm(conf *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.MysqlConfig.User,
		conf.MysqlConfig.Password,
		conf.MysqlConfig.Host,
		conf.MysqlConfig.Port,
		conf.MysqlConfig.DatabaseName,
	)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&query.Query{},
		&query.Answer{},
		&query.QueryResult{},
		&query.Chunk{},
		&query.Collection{},
		&escalation.EscalationRequest{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
