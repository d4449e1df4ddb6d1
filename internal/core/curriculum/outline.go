package curriculum

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// UnitKeyword は単元タイトルに含まれるキーワード
const UnitKeyword = "الوحدة"

// LessonKeyword は課タイトルに含まれるキーワード
const LessonKeyword = "الدرس"

// Outline は1教科分の目次を文書順に保持する読み取り専用ビュー
type Outline struct {
	items []*TocItem
	byID  map[uuid.UUID]*TocItem
}

// NewOutline は TocItem 群から Outline を構築する（order_index 昇順に並べ替える）
func NewOutline(items []*TocItem) *Outline {
	ordered := make([]*TocItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	byID := make(map[uuid.UUID]*TocItem, len(ordered))
	for _, it := range ordered {
		byID[it.ID] = it
	}
	return &Outline{items: ordered, byID: byID}
}

// Items は文書順の TocItem を返す
func (o *Outline) Items() []*TocItem {
	return o.items
}

// Item は ID から TocItem を引く
func (o *Outline) Item(id uuid.UUID) mo.Option[*TocItem] {
	if it, ok := o.byID[id]; ok {
		return mo.Some(it)
	}
	return mo.None[*TocItem]()
}

// Parent は直接の親を返す
func (o *Outline) Parent(item *TocItem) mo.Option[*TocItem] {
	if item == nil || item.ParentID == nil {
		return mo.None[*TocItem]()
	}
	return o.Item(*item.ParentID)
}

// UnitOf は item の所属単元を返す。
// 祖先のうち最上位の level 1 ノードを優先し、無ければ直接の親を返す。
func (o *Outline) UnitOf(item *TocItem) mo.Option[*TocItem] {
	direct := o.Parent(item)
	if direct.IsAbsent() {
		return direct
	}

	var top *TocItem
	seen := map[uuid.UUID]struct{}{}
	for cur := direct; cur.IsPresent(); {
		node := cur.MustGet()
		if _, dup := seen[node.ID]; dup {
			break
		}
		seen[node.ID] = struct{}{}
		if node.Level == 1 {
			top = node
		}
		cur = o.Parent(node)
	}
	if top != nil {
		return mo.Some(top)
	}
	return direct
}

// IsUnitLike はナビゲーション上の単元として扱うかを返す
func IsUnitLike(item *TocItem) bool {
	return item.Level <= 1 || strings.Contains(strings.TrimSpace(item.Title), UnitKeyword)
}

// Units は単元一覧を返す。単元が見つからない場合は level <= 2 の先頭12件で代用する。
func (o *Outline) Units() []*TocItem {
	var units []*TocItem
	for _, it := range o.items {
		if IsUnitLike(it) {
			units = append(units, it)
		}
	}
	if len(units) > 0 {
		return units
	}

	for _, it := range o.items {
		if it.Level <= 2 {
			units = append(units, it)
			if len(units) == 12 {
				break
			}
		}
	}
	return units
}

// LessonsOf は単元直下の課を返す。
// 子を持たないフラットな目次では、次の単元までの後続ノードを課とみなす。
func (o *Outline) LessonsOf(unitID uuid.UUID) []*TocItem {
	unit, ok := o.byID[unitID]
	if !ok {
		return nil
	}

	var lessons []*TocItem
	for _, it := range o.items {
		if it.ParentID != nil && *it.ParentID == unit.ID && it.ID != unit.ID {
			lessons = append(lessons, it)
		}
	}
	if len(lessons) > 0 {
		return lessons
	}

	idx := -1
	for i, it := range o.items {
		if it.ID == unit.ID {
			idx = i
			break
		}
	}
	for _, it := range o.items[idx+1:] {
		if IsUnitLike(it) {
			break
		}
		lessons = append(lessons, it)
	}
	return lessons
}

// EndPages は保存済みの end_pdf_page を優先しつつ、未設定のものを補完した値を返す
func (o *Outline) EndPages() map[uuid.UUID]*int {
	ends := make(map[uuid.UUID]*int, len(o.items))
	computed := ComputeEndPages(o.items)
	for i, it := range o.items {
		if it.EndPDFPage != nil {
			ends[it.ID] = it.EndPDFPage
			continue
		}
		ends[it.ID] = computed[i]
	}
	return ends
}

// ComputeEndPages は文書順の items に対して終了ページを計算する。
// items[i] の終了ページは、後続のうち開始ページが items[i] より真に大きい最初の項目の開始ページ - 1。
// 開始ページ不明または後続が無い場合は nil。
func ComputeEndPages(items []*TocItem) []*int {
	ends := make([]*int, len(items))
	for i, it := range items {
		if it.StartPDFPage == nil {
			continue
		}
		start := *it.StartPDFPage
		for _, next := range items[i+1:] {
			if next.StartPDFPage != nil && *next.StartPDFPage > start {
				ends[i] = IntPtr(*next.StartPDFPage - 1)
				break
			}
		}
	}
	return ends
}

// FillEndPages は ComputeEndPages の結果を items に書き戻す
func FillEndPages(items []*TocItem) {
	for i, end := range ComputeEndPages(items) {
		items[i].EndPDFPage = end
	}
}

// LessonRange は課のページ範囲を返す。終了ページが無い場合は文書末尾まで。
func LessonRange(item *TocItem, end *int, pageCount int) mo.Option[PageRange] {
	if item == nil || item.StartPDFPage == nil {
		return mo.None[PageRange]()
	}
	last := pageCount - 1
	if end != nil {
		last = *end
	}
	if last < *item.StartPDFPage {
		last = *item.StartPDFPage
	}
	return mo.Some(PageRange{Start: *item.StartPDFPage, End: last})
}
