package snowflake

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once

	errInvalidNodeID      = errors.New("invalid snowflake machine/datacenter id")
	errGeneratorUninitial = errors.New("snowflake generator is not initialized")
)

// Init 初始化全局节点，machineID 与 dataCenterID 取值 0~31
func Init(machineID, dataCenterID int64) error {
	var initErr error

	once.Do(func() {
		if machineID < 0 || machineID > 31 || dataCenterID < 0 || dataCenterID > 31 {
			initErr = fmt.Errorf("%w: machine=%d datacenter=%d", errInvalidNodeID, machineID, dataCenterID)
			return
		}

		node, initErr = snowflake.NewNode(dataCenterID<<5 | machineID)
	})

	return initErr
}

// NextID 生成内部主键
func NextID() (int64, error) {
	if node == nil {
		return 0, errGeneratorUninitial
	}
	return node.Generate().Int64(), nil
}

// NextPublicID 生成对外暴露的 ID（base58 字符串）
func NextPublicID() (string, error) {
	if node == nil {
		return "", errGeneratorUninitial
	}
	return node.Generate().Base58(), nil
}

// IDGenerator 供 service 注入，测试时替换为递增计数器
type IDGenerator interface {
	NextID() (int64, error)
	NextPublicID() (string, error)
}

type nodeGenerator struct{}

func (nodeGenerator) NextID() (int64, error)        { return NextID() }
func (nodeGenerator) NextPublicID() (string, error) { return NextPublicID() }

// Default 返回基于全局节点的生成器
func Default() IDGenerator {
	return nodeGenerator{}
}
