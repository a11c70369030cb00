package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"wexcommerce/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

type Kind string

const (
	KindProducts   Kind = "products"
	KindCategories Kind = "categories"
)

// CSVImporter reads catalog CSV exports and inserts/updates products or categories.
type CSVImporter struct {
	reader       *csv.Reader
	productRepo  ProductWriter
	categoryRepo CategoryWriter
	// category slug -> id, filled as categories are upserted
	categoryIDs map[string]string
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:       csvr,
		productRepo:  products,
		categoryRepo: categories,
		categoryIDs:  map[string]string{},
	}
}

// DetectKind reads the header line and reports which catalog file it is.
func DetectKind(r io.Reader) (Kind, error) {
	headers, err := csv.NewReader(r).Read()
	if err != nil {
		return "", fmt.Errorf("read headers: %w", err)
	}
	return kindOf(headerIndex(headers))
}

func kindOf(index map[string]int) (Kind, error) {
	if _, ok := index["price"]; ok {
		return KindProducts, nil
	}
	if _, ok := index["slug"]; ok {
		return KindCategories, nil
	}
	if _, ok := index["name"]; ok {
		return KindCategories, nil
	}
	return "", errors.New("unrecognised csv headers")
}

type productRow struct {
	ID         string
	Name       string
	Desc       string
	Categories []string
	Cents      int64
	Quantity   int
	Hidden     bool
	Featured   bool
	ImageURLs  []string
}

// Run parses CSV rows and upserts them. Product rows without a name are
// image continuation rows for the preceding product.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	kind, err := kindOf(index)
	if err != nil {
		return 0, err
	}
	if kind == KindCategories {
		return i.runCategories(ctx, index)
	}
	if i.productRepo == nil {
		return 0, errors.New("product writer is required for product imports")
	}

	var (
		current  *productRow
		imported int
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row, err := parseProductRow(record, index)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}

		if row.Name != "" {
			if current != nil {
				if err := i.saveProduct(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		if current != nil && len(row.ImageURLs) > 0 {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
		}
	}

	if current != nil {
		if err := i.saveProduct(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) runCategories(ctx context.Context, index map[string]int) (int, error) {
	if i.categoryRepo == nil {
		return 0, errors.New("category writer is required for category imports")
	}
	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			return imported, nil
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		name := pick(record, index, "name")
		if name == "" {
			continue
		}
		slug := pick(record, index, "slug")
		if slug == "" {
			slug = slugify(name)
		}
		c := domain.Category{Name: name, Slug: slug}
		if parent := pick(record, index, "parent"); parent != "" {
			parentID, err := i.ensureCategory(ctx, parent)
			if err != nil {
				return imported, err
			}
			c.ParentID = &parentID
		}
		saved, err := i.categoryRepo.Upsert(ctx, c)
		if err != nil {
			return imported, fmt.Errorf("upsert category %q: %w", slug, err)
		}
		i.categoryIDs[saved.Slug] = saved.ID
		imported++
	}
}

// ensureCategory resolves a category name or slug to an id, creating the
// category when it does not exist yet.
func (i *CSVImporter) ensureCategory(ctx context.Context, name string) (string, error) {
	slug := slugify(name)
	if id, ok := i.categoryIDs[slug]; ok {
		return id, nil
	}
	if i.categoryRepo == nil {
		return "", fmt.Errorf("category %q: no category writer", name)
	}
	c, err := i.categoryRepo.Upsert(ctx, domain.Category{Name: name, Slug: slug})
	if err != nil {
		return "", fmt.Errorf("upsert category %q: %w", slug, err)
	}
	i.categoryIDs[slug] = c.ID
	return c.ID, nil
}

func (i *CSVImporter) saveProduct(ctx context.Context, row *productRow) error {
	if row.ID != "" && !domain.ValidID(row.ID) {
		return fmt.Errorf("invalid id for product %q: %s", row.Name, row.ID)
	}

	categoryIDs := make([]string, 0, len(row.Categories))
	for _, name := range row.Categories {
		id, err := i.ensureCategory(ctx, name)
		if err != nil {
			return err
		}
		categoryIDs = append(categoryIDs, id)
	}

	images := row.ImageURLs
	if images == nil {
		images = []string{}
	}
	p := domain.Product{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Desc,
		CategoryIDs: categoryIDs,
		PriceCents:  row.Cents,
		Quantity:    row.Quantity,
		SoldOut:     row.Quantity == 0,
		Hidden:      row.Hidden,
		Featured:    row.Featured,
		Images:      images,
	}

	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Name, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseProductRow(record []string, index map[string]int) (*productRow, error) {
	name := pick(record, index, "name")
	imageURL := pick(record, index, "image")
	if name == "" && imageURL == "" {
		return nil, nil
	}

	row := &productRow{
		ID:   pick(record, index, "id"),
		Name: name,
		Desc: pick(record, index, "description"),
	}
	if imageURL != "" {
		row.ImageURLs = []string{imageURL}
	}
	if name == "" {
		return row, nil
	}

	cents, err := parseCents(pick(record, index, "price"))
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", name, err)
	}
	row.Cents = cents

	if q := pick(record, index, "quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("product %q: invalid quantity %q", name, q)
		}
		row.Quantity = n
	}
	row.Hidden = parseBool(pick(record, index, "hidden"))
	row.Featured = parseBool(pick(record, index, "featured"))
	for _, c := range strings.Split(pick(record, index, "categories"), ";") {
		if c = strings.TrimSpace(c); c != "" {
			row.Categories = append(row.Categories, c)
		}
	}
	return row, nil
}

// parseCents converts a decimal price such as "12.99" into cents.
func parseCents(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("price is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	cents := d.Shift(2)
	if d.IsNegative() || !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return cents.IntPart(), nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
