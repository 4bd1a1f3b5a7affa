package repository

import (
	"fmt"
	"os"

	"gorm.io/gen"

	"CoachCheck/internal/model"
	"CoachCheck/pkg/errors"
	"CoachCheck/storage/database"
)

// 以下接口供 gorm gen 生成类型安全的查询代码（cmd/gen），
// 运行期的仓储实现直接使用 gorm，生成结果用于报表与排查脚本

// ========== Client 相关查询接口 ==========

// ClientQuerier 客户查询接口
type ClientQuerier interface {
	// GetByPublicID 根据 PublicID 查询客户
	//
	// SELECT * FROM @@table WHERE public_id = @publicID LIMIT 1
	GetByPublicID(publicID string) (*gen.T, error)

	// ListNotOnboarded 查询尚未完成首期分配的客户
	//
	// SELECT * FROM @@table
	// WHERE coach_id = @coachID
	//   AND onboarded_at IS NULL
	// ORDER BY created_at ASC
	ListNotOnboarded(coachID int64) ([]*gen.T, error)
}

// ========== CheckInOccurrence 相关查询接口 ==========

// CheckInOccurrenceQuerier 打卡期查询接口
type CheckInOccurrenceQuerier interface {
	// ListBySeries 按序列查询所有期
	//
	// SELECT * FROM @@table
	// WHERE client_id = @clientID AND form_id = @formID
	// ORDER BY recurrence_index ASC
	ListBySeries(clientID, formID int64) ([]*gen.T, error)

	// CountByStatus 统计客户各状态的期数
	//
	// SELECT status, COUNT(*) as count
	// FROM @@table
	// WHERE client_id = @clientID
	// GROUP BY status
	CountByStatus(clientID int64) ([]gen.M, error)

	// ListMissedBetween 查询某段时间内被判定漏打的期
	//
	// SELECT * FROM @@table
	// WHERE status = 'overdue'
	//   AND missed_at >= @from
	//   AND missed_at < @to
	// {{if limit > 0}}
	// LIMIT @limit
	// {{end}}
	ListMissedBetween(from, to string, limit int) ([]*gen.T, error)
}

// ========== CheckInSeries 相关查询接口 ==========

// CheckInSeriesQuerier 打卡序列查询接口
type CheckInSeriesQuerier interface {
	// GetByKey 根据 (client, form) 查询序列
	//
	// SELECT * FROM @@table WHERE client_id = @clientID AND form_id = @formID LIMIT 1
	GetByKey(clientID, formID int64) (*gen.T, error)
}

func Generate() error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	db := database.DB()
	if db == nil {
		return errors.ErrDatabaseConnectionNil
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./internal/repository/query",
		ModelPkgPath:      "CoachCheck/internal/model",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface | gen.WithoutContext,
		FieldNullable:     true,
		FieldCoverable:    false,
		FieldSignable:     false,
		FieldWithIndexTag: false,
		FieldWithTypeTag:  true,
	})

	g.UseDB(db)

	g.ApplyBasic(model.All()...)

	g.ApplyInterface(func(ClientQuerier) {}, &model.Client{})
	g.ApplyInterface(func(CheckInOccurrenceQuerier) {}, &model.CheckInOccurrence{})
	g.ApplyInterface(func(CheckInSeriesQuerier) {}, &model.CheckInSeries{})

	g.Execute()

	return nil
}

func RunGenerate() {
	if err := Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate code: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Code generation completed successfully!")
}
