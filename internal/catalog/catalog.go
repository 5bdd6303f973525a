package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/utils"
	"gopkg.in/yaml.v3"
)

//go:embed data/sample.yaml
var sampleData []byte

// Parse 解析 YAML 格式的目录并校验
func Parse(data []byte) (*domain.Catalog, error) {
	c := &domain.Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("无法解析目录: %w", err)
	}
	if err := utils.ValidateCatalog(c); err != nil {
		return nil, err
	}
	return c, nil
}

func LoadFile(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取目录文件 %s: %w", path, err)
	}
	return Parse(data)
}

// Sample 返回内置的示例目录，每次调用都返回新的副本
func Sample() *domain.Catalog {
	c, err := Parse(sampleData)
	if err != nil {
		// 内置数据是固定的，解析失败只可能是代码写错了
		panic(fmt.Sprintf("catalog: 内置示例目录不合法: %v", err))
	}
	return c
}

// Marshal 把目录编码为 YAML，seed 导出随机目录时使用
func Marshal(c *domain.Catalog) ([]byte, error) {
	return yaml.Marshal(c)
}
