package model

// ==================== 订阅套餐 ====================

const (
	PlanFree     = "FREE"
	PlanStandard = "STANDARD"
	PlanPremium  = "PREMIUM"
)

// PlanLimits 套餐资源上限
type PlanLimits struct {
	CatalogMedia     int `json:"catalogMedia"`
	FeaturedProjects int `json:"featuredProjects"`
	FeaturedImages   int `json:"featuredImages"` // 每个项目的图片上限
}

// 各套餐上限表
var planLimits = map[string]PlanLimits{
	PlanFree:     {CatalogMedia: 3, FeaturedProjects: 0, FeaturedImages: 0},
	PlanStandard: {CatalogMedia: 10, FeaturedProjects: 3, FeaturedImages: 5},
	PlanPremium:  {CatalogMedia: 30, FeaturedProjects: 10, FeaturedImages: 5},
}

// LimitsFor 获取套餐上限，未知套餐按 FREE 处理
func LimitsFor(plan string) PlanLimits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// Remaining 剩余配额 = 上限 - 当前数量，不为负
func Remaining(limit, current int) int {
	if r := limit - current; r > 0 {
		return r
	}
	return 0
}
