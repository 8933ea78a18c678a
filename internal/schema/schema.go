package schema

import (
	"fmt"
	"unicode/utf8"

	"listhub_v1_202608/internal/model"
)

// ==================== 字段错误 ====================

// FieldError 单个字段的校验错误，Field 为字段路径
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors 有序错误集合
// 顺序由校验规则的声明顺序决定（从左到右、从上到下），保证首错误确定
type FieldErrors []FieldError

// First 返回第一个错误，供前端定位滚动锚点
func (e FieldErrors) First() *FieldError {
	if len(e) == 0 {
		return nil
	}
	return &e[0]
}

func (e FieldErrors) Error() string {
	if first := e.First(); first != nil {
		return fmt.Sprintf("%s: %s", first.Field, first.Message)
	}
	return "校验通过"
}

// Has 指定字段是否有错误
func (e FieldErrors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

type collector struct {
	errs FieldErrors
}

func (c *collector) add(field, message string) {
	c.errs = append(c.errs, FieldError{Field: field, Message: message})
}

// ==================== 步骤校验入口 ====================

// 各步骤字段上限
const (
	maxTitleLen       = 120
	minDescriptionLen = 3
	maxDescriptionLen = 5000
	maxMainImages     = 5
	maxHighlights     = 10
	maxSpecialties    = 10
	minProjectNameLen = 3
	maxProjectNameLen = 100
	maxProjectImages  = 5
)

// ValidateStep 校验指定类型、指定步骤的载荷
// 纯函数，无副作用；返回 nil 表示通过
func ValidateStep(kind, step string, p *model.ListingPayload) FieldErrors {
	if p == nil {
		return FieldErrors{{Field: "payload", Message: "载荷不能为空"}}
	}

	c := &collector{}
	switch step {
	case "main-info":
		validateMainInfo(c, kind, p)
	case "additional-info":
		validateAdditionalInfo(c, p)
	case "featured":
		validateFeatured(c, p)
	default:
		c.add("step", "未知的步骤: "+step)
	}
	return c.errs
}

// ==================== main-info ====================

func validateMainInfo(c *collector, kind string, p *model.ListingPayload) {
	if p.Title == "" {
		c.add("title", "标题不能为空")
	} else if utf8.RuneCountInString(p.Title) > maxTitleLen {
		c.add("title", fmt.Sprintf("标题不能超过 %d 个字符", maxTitleLen))
	}

	switch p.Visibility {
	case model.VisibilityPublic, model.VisibilityPrivate:
	case "":
		c.add("visibility", "请选择可见性")
	default:
		c.add("visibility", "无效的可见性: "+p.Visibility)
	}

	if p.CategoryID <= 0 {
		c.add("categoryId", "请选择分类")
	}
	if p.SubcategoryID <= 0 {
		c.add("subcategoryId", "请选择子分类")
	}

	// 配送/服务渠道：三选一以上，错误挂在渠道字段组上
	if !p.Delivery.HasChannel() {
		c.add("delivery", "至少选择一个配送/服务渠道")
		return
	}

	// 服务类刊登需要校验服务范围明细
	if kind == model.ListingKindService {
		validateServiceArea(c, p.Delivery)
	}
}

// validateServiceArea 服务范围规则：
// 国内：国家 + 至少一个省；国际/线上：至少一个国家
func validateServiceArea(c *collector, d *model.DeliveryConfig) {
	if d.Nationally != nil {
		if d.Nationally.Country == "" {
			c.add("delivery.nationally.country", "请选择国家")
		}
		if len(d.Nationally.States) == 0 {
			c.add("delivery.nationally.states", "请至少选择一个省/州")
		}
	}
	for i, r := range d.Internationally {
		if r.Country == "" {
			c.add(fmt.Sprintf("delivery.internationally[%d].country", i), "请选择国家")
		}
	}
	for i, r := range d.Online {
		if r.Country == "" {
			c.add(fmt.Sprintf("delivery.online[%d].country", i), "请选择国家")
		}
	}
}

// ==================== additional-info ====================

func validateAdditionalInfo(c *collector, p *model.ListingPayload) {
	if len(p.MainImages) > maxMainImages {
		c.add("mainImages", fmt.Sprintf("主图不能超过 %d 张", maxMainImages))
	}
	for i := range p.MainImages {
		if !p.MainImages[i].Valid() {
			c.add(fmt.Sprintf("mainImages[%d]", i), "无效的文件引用")
		}
	}

	descLen := utf8.RuneCountInString(p.Description)
	if descLen < minDescriptionLen || descLen > maxDescriptionLen {
		c.add("description", fmt.Sprintf("描述长度需在 %d-%d 个字符之间", minDescriptionLen, maxDescriptionLen))
	}

	if len(p.Highlights) > maxHighlights {
		c.add("highlights", fmt.Sprintf("亮点不能超过 %d 条", maxHighlights))
	}
	for i, h := range p.Highlights {
		if h == "" {
			c.add(fmt.Sprintf("highlights[%d]", i), "亮点不能为空")
		}
	}

	if len(p.Specialties) > maxSpecialties {
		c.add("specialties", fmt.Sprintf("专长不能超过 %d 条", maxSpecialties))
	}
	for i, s := range p.Specialties {
		if s == "" {
			c.add(fmt.Sprintf("specialties[%d]", i), "专长不能为空")
		}
	}

	if p.Price == nil {
		c.add("price", "请填写价格")
	} else {
		if p.Price.Amount <= 0 {
			c.add("price.amount", "价格必须大于 0")
		}
		if !model.ValidPriceUnit(p.Price.Unit) {
			c.add("price.unit", "无效的计价单位")
		}
	}

	for i := range p.Catalog {
		if !p.Catalog[i].Valid() {
			c.add(fmt.Sprintf("catalog[%d]", i), "图册条目必须是上传文件或外部链接之一")
		}
	}
}

// ==================== featured（仅服务类） ====================

func validateFeatured(c *collector, p *model.ListingPayload) {
	for i, proj := range p.FeaturedProjects {
		nameLen := utf8.RuneCountInString(proj.Name)
		if nameLen < minProjectNameLen || nameLen > maxProjectNameLen {
			c.add(fmt.Sprintf("featuredProjects[%d].name", i),
				fmt.Sprintf("项目名称长度需在 %d-%d 个字符之间", minProjectNameLen, maxProjectNameLen))
		}
		if len(proj.Images) < 1 || len(proj.Images) > maxProjectImages {
			c.add(fmt.Sprintf("featuredProjects[%d].images", i),
				fmt.Sprintf("每个项目需要 1-%d 张图片", maxProjectImages))
		}
		for j := range proj.Images {
			if !proj.Images[j].Valid() {
				c.add(fmt.Sprintf("featuredProjects[%d].images[%d]", i, j), "无效的文件引用")
			}
		}
	}
}

// ==================== 全量校验 ====================

// ValidateAll 按步骤顺序校验全部已知步骤，定稿前调用
func ValidateAll(kind string, steps []string, p *model.ListingPayload) FieldErrors {
	var all FieldErrors
	for _, step := range steps {
		all = append(all, ValidateStep(kind, step, p)...)
	}
	return all
}
