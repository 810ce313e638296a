package paging_test

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/queries/qm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/seekpage"
	"github.com/nrfta/seekpage/cursor"
	"github.com/nrfta/seekpage/filterexpr"
	"github.com/nrfta/seekpage/ordering"
	"github.com/nrfta/seekpage/predicate"
	sqlb "github.com/nrfta/seekpage/sqlboiler"
	"github.com/nrfta/seekpage/tests/models"
)

func productFields() *sqlb.FieldSet {
	return sqlb.NewFieldSet(map[string]sqlb.FieldHandle{
		"id":       sqlb.Column("products", "id"),
		"name":     sqlb.Column("products", "name"),
		"category": sqlb.Column("products", "category"),
		"price":    sqlb.Column("products", "price"),
		"likes":    sqlb.Column("products", "likes"),
	})
}

func productExtractor(p *models.Product) map[string]any {
	return map[string]any{
		"id":       float64(p.ID),
		"name":     p.Name,
		"category": p.Category,
		"price":    float64(p.Price),
		"likes":    float64(p.Likes),
	}
}

// newScenarioPaginator parses filterExpr (empty = no filter) and orderBy
// through the full C2/C3/C4 pipeline and wires the result to a fresh
// keyset paginator (C5) over the real products table — the composition an
// application performs once per request.
func newScenarioPaginator(fields *sqlb.FieldSet, filterExpr, orderBy string) *cursor.Paginator[*models.Product] {
	allowed := fields.Fields()

	ord, err := ordering.Parse(orderBy, allowed)
	Expect(err).NotTo(HaveOccurred())

	var baseMods []qm.QueryMod
	if filterExpr != "" {
		ast, err := filterexpr.Parse(filterExpr)
		Expect(err).NotTo(HaveOccurred())
		Expect(filterexpr.ValidateFields(ast, allowed)).To(Succeed())
		pred, err := predicate.Lower(ast, allowed, fields)
		Expect(err).NotTo(HaveOccurred())
		baseMods = sqlb.ApplyPredicate(baseMods, pred)
	}

	queryFunc := func(ctx context.Context, mods ...qm.QueryMod) ([]*models.Product, error) {
		return models.Products(mods...).All(ctx, sharedContainer.DB)
	}
	countFunc := func(ctx context.Context, mods ...qm.QueryMod) (int64, error) {
		return models.Products(mods...).Count(ctx, sharedContainer.DB)
	}

	ops := sqlb.NewQueryOps[*models.Product](fields, ord, baseMods, queryFunc, countFunc)
	return cursor.New[*models.Product](ops, productExtractor)
}

func ids(items []*models.Product) []int {
	out := make([]int, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

var _ = Describe("keyset pagination end-to-end", func() {
	var fields *sqlb.FieldSet

	BeforeEach(func() {
		fields = productFields()
	})

	It("S1: first page ascending by id, size 2, no cursor", func() {
		p := newScenarioPaginator(fields, "", "id")
		opts, err := paging.NewPageOptions(nil, 2, false)
		Expect(err).NotTo(HaveOccurred())

		page, err := p.Paginate(context.Background(), opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.TotalSize).To(Equal(int64(5)))
		Expect(ids(page.Items)).To(Equal([]int{1, 2}))
		Expect(page.Prev).To(BeNil())
		Expect(page.Next).NotTo(BeNil())
	})

	It("S2: second page using S1.next, size 2", func() {
		p := newScenarioPaginator(fields, "", "id")
		opts1, _ := paging.NewPageOptions(nil, 2, false)
		page1, err := p.Paginate(context.Background(), opts1)
		Expect(err).NotTo(HaveOccurred())

		p2 := newScenarioPaginator(fields, "", "id")
		opts2, _ := paging.NewPageOptions(page1.Next, 2, false)
		page2, err := p2.Paginate(context.Background(), opts2)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(page2.Items)).To(Equal([]int{3, 4}))
		Expect(page2.Prev).NotTo(BeNil())
		Expect(page2.Next).NotTo(BeNil())
	})

	It("S3: filter electronics priced >= 50000, order -likes, size 2", func() {
		p := newScenarioPaginator(fields, `price >= 50000 && category == "electronics"`, "-likes")
		opts, _ := paging.NewPageOptions(nil, 2, false)

		page, err := p.Paginate(context.Background(), opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.TotalSize).To(Equal(int64(3)))
		Expect(ids(page.Items)).To(Equal([]int{2, 4})) // Phone(100 likes), Tablet(70 likes)
		Expect(page.Next).NotTo(BeNil())
	})

	It("S4: backward navigation from S2.prev returns S1's page in ascending order", func() {
		p1 := newScenarioPaginator(fields, "", "id")
		opts1, _ := paging.NewPageOptions(nil, 2, false)
		page1, err := p1.Paginate(context.Background(), opts1)
		Expect(err).NotTo(HaveOccurred())

		p2 := newScenarioPaginator(fields, "", "id")
		opts2, _ := paging.NewPageOptions(page1.Next, 2, false)
		page2, err := p2.Paginate(context.Background(), opts2)
		Expect(err).NotTo(HaveOccurred())

		p3 := newScenarioPaginator(fields, "", "id")
		opts3, _ := paging.NewPageOptions(page2.Prev, 2, false)
		page3, err := p3.Paginate(context.Background(), opts3)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(page3.Items)).To(Equal([]int{1, 2}))
	})

	It("S5: include_prev_cursor with exactly-page-size data", func() {
		p := newScenarioPaginator(fields, "", "-id")
		opts, _ := paging.NewPageOptions(nil, 5, true)

		page, err := p.Paginate(context.Background(), opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(page.Items)).To(Equal([]int{5, 4, 3, 2, 1}))
		Expect(page.Prev).NotTo(BeNil())
		Expect(page.Next).To(BeNil())
	})

	It("S6: cursor minted against one ordering is rejected against another", func() {
		p := newScenarioPaginator(fields, "", "id")
		opts, _ := paging.NewPageOptions(nil, 2, false)
		page, err := p.Paginate(context.Background(), opts)
		Expect(err).NotTo(HaveOccurred())

		mismatched := newScenarioPaginator(fields, "", "-id")
		badOpts, _ := paging.NewPageOptions(page.Next, 2, false)
		_, err = mismatched.Paginate(context.Background(), badOpts)
		Expect(err).To(HaveOccurred())

		var cursorErr *paging.CursorError
		Expect(err).To(BeAssignableToTypeOf(cursorErr))
	})
})
