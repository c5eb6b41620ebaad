package explorer

import (
	"fmt"
	"strings"
)

// ==================== Concolic 搜索数据结构 ====================

// State 一个具体输入元组。参考形态为 (整数, 字符串) 的二元组;
// 字段均为可比较类型,State 本身可直接作为 map 键做去重
type State struct {
	Num int64  `json:"num"`
	Str string `json:"str"`
}

// Repr 状态的确定性文本形式
func (s State) Repr() string {
	return stateRepr(s.Num, s.Str)
}

// ConcolicTarget concolic 搜索的目标函数:以状态的两个分量作为位置参数调用,
// 返回分类标签或错误
type ConcolicTarget func(num int64, str string) (string, error)

// Witness 某个分类标签最近一次被观察到时的具体状态
type Witness struct {
	State State  `json:"state"`
	Err   string `json:"err,omitempty"`
}

// MutationConfig 后继状态生成配置
type MutationConfig struct {
	// Offsets 数值变异的固定有符号偏移集合
	Offsets []int64 `yaml:"offsets" json:"offsets"`
	// InterestingValue 已知的可疑特殊值。每次变异额外生成一个
	// 偏移 = InterestingValue - 当前值 的后继,保证一步命中。
	// 指针区分"未设置"与显式 0:nil 由 MergeWithDefaults 补默认值,0 照常生效
	InterestingValue *int64 `yaml:"interesting_value" json:"interesting_value"`
	// MaxMagnitude 数值后继的绝对值上界,超界后继被丢弃以保持搜索空间有限
	MaxMagnitude int64 `yaml:"max_magnitude" json:"max_magnitude"`
	// TriggerSubstrings 触发子串集合。子串缺失时生成追加该子串的后继
	TriggerSubstrings []string `yaml:"trigger_substrings" json:"trigger_substrings"`
	// TriggerPrefix 触发前缀。字符串未以其开头时生成前置该前缀的后继
	TriggerPrefix string `yaml:"trigger_prefix" json:"trigger_prefix"`
	// Modulus 条件变异的模数:Num 被整除时额外生成 Num+1 的后继。
	// nil 取默认值;显式 0 或 1 关闭条件变异
	Modulus *int64 `yaml:"modulus" json:"modulus"`
}

// DefaultMutationConfig 默认变异配置
func DefaultMutationConfig() *MutationConfig {
	interesting, modulus := int64(42), int64(7)
	return &MutationConfig{
		Offsets:           []int64{-1, 1, 3, -3},
		InterestingValue:  &interesting,
		MaxMagnitude:      10000,
		TriggerSubstrings: []string{"magic", "admin"},
		TriggerPrefix:     "cmd:",
		Modulus:           &modulus,
	}
}

// MergeWithDefaults 用默认值补齐未设置的字段
func (c *MutationConfig) MergeWithDefaults() {
	def := DefaultMutationConfig()
	if len(c.Offsets) == 0 {
		c.Offsets = def.Offsets
	}
	if c.InterestingValue == nil {
		c.InterestingValue = def.InterestingValue
	}
	if c.MaxMagnitude == 0 {
		c.MaxMagnitude = def.MaxMagnitude
	}
	if len(c.TriggerSubstrings) == 0 {
		c.TriggerSubstrings = def.TriggerSubstrings
	}
	if c.TriggerPrefix == "" {
		c.TriggerPrefix = def.TriggerPrefix
	}
	if c.Modulus == nil {
		c.Modulus = def.Modulus
	}
}

// ==================== 搜索器 ====================

// Searcher 有界 FIFO 工作队列搜索器
type Searcher struct {
	config *MutationConfig

	// pops 上一次 Search 执行的出队次数,用于验证迭代上界
	pops int
}

// NewSearcher 创建搜索器。config 为 nil 时使用默认配置
func NewSearcher(config *MutationConfig) *Searcher {
	if config == nil {
		config = DefaultMutationConfig()
	}
	return &Searcher{config: config}
}

// LastPops 返回上一次 Search 的出队次数
func (s *Searcher) LastPops() int {
	return s.pops
}

// Search 执行有界广度优先工作队列搜索。
//
// 去重发生在出队时而非入队时:同一状态可能多次进入队列,
// 但至多被实际调用一次;重复出队按廉价跳过处理,仍计入迭代上界。
// 结果索引对同一标签采用"后写覆盖"语义——给定标签返回的见证状态
// 是最近一次观察到它的状态,不得改为首写保留。
func (s *Searcher) Search(target ConcolicTarget, seeds []State, maxIters int) map[string]Witness {
	worklist := make([]State, 0, len(seeds))
	worklist = append(worklist, seeds...)

	visited := make(map[State]struct{})
	results := make(map[string]Witness)
	s.pops = 0

	for len(worklist) > 0 && s.pops < maxIters {
		state := worklist[0]
		worklist = worklist[1:]

		if _, seen := visited[state]; seen {
			s.pops++
			continue
		}
		visited[state] = struct{}{}

		label, err := target(state.Num, state.Str)
		if err != nil {
			// 失败调用不会终止搜索:用逐状态唯一的标签记录,
			// 避免不同失败状态相互覆盖
			results[fmt.Sprintf("error@%s", state.Repr())] = Witness{State: state, Err: err.Error()}
		} else {
			results[label] = Witness{State: state}
		}

		// 后继一律追加到队尾,保持 FIFO/BFS 次序
		worklist = append(worklist, s.successors(state)...)
		s.pops++
	}

	return results
}

// successors 生成一个状态的后继集合
func (s *Searcher) successors(state State) []State {
	cfg := s.config
	out := make([]State, 0, len(cfg.Offsets)+len(cfg.TriggerSubstrings)+3)

	// 数值变异:固定偏移集合 + 恰好落在可疑值上的单步偏移
	offsets := make([]int64, 0, len(cfg.Offsets)+1)
	offsets = append(offsets, cfg.Offsets...)
	if cfg.InterestingValue != nil {
		offsets = append(offsets, *cfg.InterestingValue-state.Num)
	}
	for _, d := range offsets {
		n := state.Num + d
		if abs64(n) > cfg.MaxMagnitude {
			continue
		}
		out = append(out, State{Num: n, Str: state.Str})
	}

	// 字符串变异:每种变异都有缺失检查作前置条件,
	// 防止同类变异被无限重复施加
	for _, trig := range cfg.TriggerSubstrings {
		if !strings.Contains(state.Str, trig) {
			out = append(out, State{Num: state.Num, Str: state.Str + trig})
		}
	}
	if cfg.TriggerPrefix != "" && !strings.HasPrefix(state.Str, cfg.TriggerPrefix) {
		out = append(out, State{Num: state.Num, Str: cfg.TriggerPrefix + state.Str})
	}

	// 条件变异:模数条件满足时数值加一
	if cfg.Modulus != nil && *cfg.Modulus > 1 && state.Num%*cfg.Modulus == 0 {
		out = append(out, State{Num: state.Num + 1, Str: state.Str})
	}

	return out
}

// Search 包级便捷入口,使用默认变异配置
func Search(target ConcolicTarget, seeds []State, maxIters int) map[string]Witness {
	return NewSearcher(nil).Search(target, seeds, maxIters)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
