// Package explorer 提供测试输入探索引擎:
// 域枚举器（对有限候选值域做笛卡尔积穷举）与 concolic 变异搜索
// （从具体种子出发、按工作队列扩展邻近输入）。
// 引擎将目标函数视为纯黑盒,不解析源码、不构建控制流图、不做约束求解。
package explorer

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ==================== 枚举器数据结构 ====================

// Combination 一组具体的参数绑定（参数名 → 参数值）
type Combination map[string]interface{}

// PathRecord 单个组合的执行结果记录
type PathRecord struct {
	// Constraints 约束串列表,每个参数一条 "name==repr(value)",按确定性键序排列
	Constraints []string `json:"constraints"`
	// Result 分类结果。原始类型与容器类型原样保留,其余转为文本表示
	Result interface{} `json:"result"`
	// Exception 目标函数体抛出的错误文本,空串表示无错误
	Exception string `json:"exception,omitempty"`
}

// Metadata 一次枚举的元信息
type Metadata struct {
	Evaluations    int      `json:"evaluations"`
	FunctionName   string   `json:"function_name"`
	ParameterNames []string `json:"parameter_names"`
}

// PathReport EnumeratePaths 的完整输出
type PathReport struct {
	Paths    []PathRecord `json:"paths"`
	Metadata Metadata     `json:"metadata"`
}

// TreeNode 符号树节点,ID 等于其在枚举序中的下标
type TreeNode struct {
	ID int `json:"id"`
	PathRecord
}

// SymbolicTree 基于枚举记录的索引视图
type SymbolicTree struct {
	Nodes    []TreeNode `json:"nodes"`
	Root     *int       `json:"root"` // 无路径时为 null
	Metadata Metadata   `json:"metadata"`
}

// ==================== 错误类型 ====================

// ArityError 调用约定不匹配错误。
// 这是唯一允许从 EnumeratePaths/GenerateTree 逃逸到调用方的错误类别:
// 它代表调用方与引擎之间的契约错误,而非被测函数自身的性质。
type ArityError struct {
	Function string
	Reason   string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("arity mismatch calling %s: %s", e.Function, e.Reason)
}

// ==================== 值呈现与结果序列化 ====================

// reprValue 以确定性文本呈现一个参数值,用于构造约束串。
// 字符串加引号,nil 记为 null,布尔用 true/false,其余用默认格式。
func reprValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// constraintsFor 按键序生成 "name==repr(value)" 约束串
func constraintsFor(keys []string, combo Combination) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s==%s", k, reprValue(combo[k])))
	}
	return out
}

// sanitizeResult 保证记录可序列化:
// 原始类型（布尔、数值、字符串、nil）与容器类型（切片、数组、映射）原样保留,
// 其余值转为文本表示。这是有意的结构损失（LossySerialization）,不是错误。
func sanitizeResult(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ==================== 域规范化 ====================

// NormalizeDomains 将 参数名 → 单值或候选集合 的映射规范化为
// 按字母序排列的键列表与逐键候选值列表。
// 裸标量变成单元素列表;集合转为列表并保留其迭代顺序。
// 字符串视为标量而非字符集合。
func NormalizeDomains(inputs map[string]interface{}) ([]string, [][]interface{}) {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lists := make([][]interface{}, 0, len(keys))
	for _, k := range keys {
		lists = append(lists, normalizeValue(inputs[k]))
	}
	return keys, lists
}

func normalizeValue(v interface{}) []interface{} {
	if v == nil {
		return []interface{}{nil}
	}
	if _, ok := v.(string); ok {
		return []interface{}{v}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
		return out
	default:
		return []interface{}{v}
	}
}

// BuildCombinations 计算逐键候选值列表的笛卡尔积。
// 采用标准乘积序:键序中的第一个键变化最慢,最后一个键变化最快。
// 该顺序是下游所有索引（树节点 ID、路径顺序）的依据,必须严格保持。
func BuildCombinations(keys []string, lists [][]interface{}) []Combination {
	if len(keys) == 0 {
		return []Combination{}
	}
	total := 1
	for _, l := range lists {
		total *= len(l)
	}
	if total == 0 {
		return []Combination{}
	}

	combos := make([]Combination, 0, total)
	idx := make([]int, len(keys))
	for {
		combo := make(Combination, len(keys))
		for i, k := range keys {
			combo[k] = lists[i][idx[i]]
		}
		combos = append(combos, combo)

		// 末位进位:最后一个键最快
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(lists[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return combos
}

// stateRepr 给出 concolic 状态的确定性文本形式,用于异常标签
func stateRepr(num int64, str string) string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(strconv.FormatInt(num, 10))
	sb.WriteByte(',')
	sb.WriteString(strconv.Quote(str))
	sb.WriteByte(')')
	return sb.String()
}
