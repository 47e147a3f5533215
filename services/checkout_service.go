package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront_server/database"
	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DeductionError reports a checkout that failed after stock was already taken
// from some mappings. Those deductions are not rolled back.
type DeductionError struct {
	Deducted []string // mapping ids already deducted
	Failed   string   // mapping id that failed, empty when the order write failed
	Err      error
}

func (e *DeductionError) Error() string {
	if e.Failed == "" {
		return fmt.Sprintf("order not saved after deducting %d mapping(s): %v", len(e.Deducted), e.Err)
	}
	return fmt.Sprintf("stock deduction failed on mapping %s after deducting %d mapping(s): %v", e.Failed, len(e.Deducted), e.Err)
}

func (e *DeductionError) Unwrap() error {
	return e.Err
}

// CheckoutRequest is a parsed checkout submission.
type CheckoutRequest struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Note    string
	Lines   []structs.CartLine
}

type CheckoutService struct {
	logger   *gecho.Logger
	cfg      *structs.Config
	stores   *database.Stores
	notifier Notifier
}

func NewCheckoutService(logger *gecho.Logger, cfg *structs.Config, stores *database.Stores, notifier Notifier) *CheckoutService {
	return &CheckoutService{
		logger:   logger,
		cfg:      cfg,
		stores:   stores,
		notifier: notifier,
	}
}

// ParseForm validates the submitted form and decodes its cart JSON.
func (cs *CheckoutService) ParseForm(form *structs.CheckoutForm) (*CheckoutRequest, error) {
	if form.Name == "" || form.Email == "" || form.Phone == "" || form.Address == "" || form.CartItems == "" {
		return nil, lib.NewValidationError("Missing required fields")
	}
	if !lib.IsValidEmail(form.Email) {
		return nil, lib.NewValidationError("Invalid email address")
	}

	var lines []structs.CartLine
	if err := json.Unmarshal([]byte(form.CartItems), &lines); err != nil || len(lines) == 0 {
		return nil, lib.NewValidationError("Invalid cart data")
	}

	return &CheckoutRequest{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Address: form.Address,
		Note:    form.Note,
		Lines:   lines,
	}, nil
}

// checkoutLine is a cart line bound to its product and, for variant lines, its
// mapping. target is the mapping stock is taken from: the line's own mapping,
// or the product's active default for lines without a variant.
type checkoutLine struct {
	product  *tables.Product
	mapping  *tables.VariantMapping
	target   *tables.VariantMapping
	quantity int
	label    string
}

// demand is the total quantity requested from one mapping or one product.
type demand struct {
	key       string
	product   *tables.Product
	mapping   *tables.VariantMapping
	label     string
	requested int
}

// Checkout validates every line, deducts stock and saves the order. Validation
// is all or nothing. The returned effects are valid even when err is a DeductionError.
func (cs *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*tables.Order, []Effect, error) {
	productIDs, err := cartProductIDs(req.Lines)
	if err != nil {
		return nil, nil, err
	}

	products, err := cs.resolveProducts(ctx, productIDs)
	if err != nil {
		return nil, nil, err
	}

	mappingsByProduct, err := cs.loadMappings(ctx, products)
	if err != nil {
		return nil, nil, err
	}

	lines, demands, err := cs.validateStock(req.Lines, products, mappingsByProduct)
	if err != nil {
		CheckoutOutcomes.WithLabelValues("rejected").Inc()
		return nil, nil, err
	}

	deductedFrom, effects, err := cs.deductStock(ctx, demands)
	if err != nil {
		CheckoutOutcomes.WithLabelValues("deduction_failed").Inc()
		return nil, effects, err
	}

	order, err := cs.buildOrder(req, lines)
	if err != nil {
		return nil, effects, cs.orderWriteFailed(deductedFrom, err)
	}
	sealed, err := cs.seal(order)
	if err != nil {
		return nil, effects, cs.orderWriteFailed(deductedFrom, err)
	}
	if _, err := cs.stores.Orders.Create(ctx, sealed); err != nil {
		return nil, effects, cs.orderWriteFailed(deductedFrom, err)
	}

	CheckoutOutcomes.WithLabelValues("placed").Inc()
	cs.logger.Info("Order placed",
		gecho.Field("order_id", order.ID),
		gecho.Field("order_number", order.OrderNumber),
		gecho.Field("lines", len(order.CartItems)),
		gecho.Field("total", order.TotalAmount.StringFixed(2)),
	)

	cs.notify(order)
	return order, effects, nil
}

func cartProductIDs(lines []structs.CartLine) ([]string, error) {
	if len(lines) == 0 {
		return nil, lib.NewValidationError("Invalid cart data")
	}

	refs := make([]lib.Identifier, 0, len(lines))
	for i, line := range lines {
		ref := line.ProductRef()
		if ref.IsEmpty() {
			return nil, lib.NewValidationError("Invalid cart data", fmt.Sprintf("line %d has no product id", i+1))
		}
		if line.Quantity < 1 {
			return nil, lib.NewValidationError("Invalid cart data", fmt.Sprintf("line %d has quantity %d, at least 1 is required", i+1, line.Quantity))
		}
		refs = append(refs, ref)
	}
	return lib.NormalizeIDs(refs), nil
}

// resolveProducts loads every published product in ids. A bulk query comes
// first, anything it missed is fetched one by one.
func (cs *CheckoutService) resolveProducts(ctx context.Context, ids []string) (map[string]*tables.Product, error) {
	result, err := cs.stores.Products.Find(ctx, database.And(
		database.In("id", ids),
		database.Equals("published", true),
	), database.FindOptions{Limit: 2 * len(ids)})
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}

	found := make(map[string]*tables.Product, len(ids))
	for i := range result.Docs {
		found[lib.NormalizeID(result.Docs[i].ID)] = &result.Docs[i]
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		cs.logger.Debug("Bulk product lookup incomplete, fetching individually",
			gecho.Field("requested", len(ids)),
			gecho.Field("found", len(found)),
		)

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, cs.cfg.Stock.FallbackConcurrency))
		for _, id := range missing {
			g.Go(func() error {
				product, err := cs.stores.Products.FindByID(gctx, id)
				if err != nil {
					if errors.Is(err, lib.ErrNotFound) {
						return nil
					}
					return err
				}
				if !product.Published {
					return nil
				}
				mu.Lock()
				found[id] = product
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to load cart products: %w", err)
		}
	}

	var unavailable []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			unavailable = append(unavailable, id)
		}
	}
	if len(unavailable) > 0 {
		err := lib.NewNotFoundError("Some products in cart are no longer available. Missing product IDs: " + strings.Join(unavailable, ", "))
		err.Details = unavailable
		return nil, err
	}

	return found, nil
}

// loadMappings fetches the mappings listed by every product in one query and attaches their variants.
func (cs *CheckoutService) loadMappings(ctx context.Context, products map[string]*tables.Product) (map[string][]tables.VariantMapping, error) {
	productIDs := make([]string, 0, len(products))
	var mappingIDs []string
	for id, product := range products {
		productIDs = append(productIDs, id)
		mappingIDs = append(mappingIDs, product.VariantMappings...)
	}
	sort.Strings(productIDs)

	byProduct := make(map[string][]tables.VariantMapping, len(products))
	mappingIDs = lib.NormalizeIDs(mappingIDs)
	if len(mappingIDs) == 0 {
		return byProduct, nil
	}

	result, err := cs.stores.Mappings.Find(ctx, database.In("id", mappingIDs), database.FindOptions{Sort: "created_at"})
	if err != nil {
		return nil, fmt.Errorf("failed to load variant mappings: %w", err)
	}

	variantIDs := make([]string, 0, len(result.Docs))
	for _, m := range result.Docs {
		variantIDs = append(variantIDs, m.VariantID)
	}
	variants := make(map[string]*tables.Variant)
	if len(variantIDs) > 0 {
		vr, err := cs.stores.Variants.Find(ctx, database.In("id", lib.NormalizeIDs(variantIDs)), database.FindOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to load variants: %w", err)
		}
		for i := range vr.Docs {
			variants[lib.NormalizeID(vr.Docs[i].ID)] = &vr.Docs[i]
		}
	}

	for _, m := range result.Docs {
		m.Variant = variants[lib.NormalizeID(m.VariantID)]
		for _, id := range productIDs {
			if lib.ContainsIdentity(products[id].VariantMappings, m.ID) {
				byProduct[id] = append(byProduct[id], m)
			}
		}
	}
	return byProduct, nil
}

func (cs *CheckoutService) validateStock(
	cart []structs.CartLine,
	products map[string]*tables.Product,
	mappingsByProduct map[string][]tables.VariantMapping,
) ([]checkoutLine, []*demand, error) {
	var failures []string
	lines := make([]checkoutLine, 0, len(cart))
	demands := make(map[string]*demand)

	for _, item := range cart {
		productID := item.ProductRef().String()
		product := products[productID]
		line := checkoutLine{product: product, quantity: item.Quantity, label: product.Title}
		key := productDemandKey(product)

		if item.Variant != nil && !item.Variant.ID.IsEmpty() {
			mapping := findMapping(mappingsByProduct[productID], item.Variant.ID)
			name := item.Variant.Name
			if mapping != nil && mapping.Variant != nil {
				name = mapping.Variant.Name
			}
			line.label = product.Title + " - " + name

			if mapping == nil || !mapping.IsActive || (mapping.Variant != nil && !mapping.Variant.IsActive) {
				failures = append(failures, line.label+": variant no longer available")
				continue
			}
			line.mapping = mapping
			line.target = mapping
		} else if def := defaultMapping(mappingsByProduct[productID]); def != nil {
			line.target = def
		}
		if line.target != nil {
			key = mappingDemandKey(line.target)
		}

		lines = append(lines, line)
		d, ok := demands[key]
		if !ok {
			d = &demand{key: key, product: product, mapping: line.target, label: demandLabel(line)}
			demands[key] = d
		}
		d.requested += item.Quantity
	}

	keys := make([]string, 0, len(demands))
	for key := range demands {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ordered := make([]*demand, 0, len(keys))
	for _, key := range keys {
		d := demands[key]
		ordered = append(ordered, d)

		available := 0
		if d.mapping != nil {
			available = MappingStock(*d.mapping)
		} else {
			available = TotalStock(mappingsByProduct[lib.NormalizeID(d.product.ID)])
		}
		if d.requested > available {
			failures = append(failures, fmt.Sprintf("%s: requested %d, available %d", d.label, d.requested, available))
		}
	}

	if len(failures) > 0 {
		cs.logger.Debug("Checkout rejected", gecho.Field("failures", failures))
		return nil, nil, lib.NewStockError(failures)
	}
	return lines, ordered, nil
}

func productDemandKey(product *tables.Product) string {
	return "product:" + lib.NormalizeID(product.ID)
}

func mappingDemandKey(m *tables.VariantMapping) string {
	return "mapping:" + lib.NormalizeID(m.ID)
}

// demandLabel names the stock a line draws from, so lines sharing a mapping report under one name.
func demandLabel(line checkoutLine) string {
	if line.mapping == nil && line.target != nil && line.target.Variant != nil {
		return line.product.Title + " - " + line.target.Variant.Name
	}
	return line.label
}

// findMapping matches ref against mapping ids and variant ids.
func findMapping(mappings []tables.VariantMapping, ref lib.Identifier) *tables.VariantMapping {
	for i := range mappings {
		if lib.SameIdentity(mappings[i].VariantID, ref) {
			return &mappings[i]
		}
	}
	for i := range mappings {
		if lib.SameIdentity(mappings[i].ID, ref) {
			return &mappings[i]
		}
	}
	return nil
}

func defaultMapping(mappings []tables.VariantMapping) *tables.VariantMapping {
	for i := range mappings {
		if mappings[i].IsDefault && mappings[i].IsActive {
			return &mappings[i]
		}
	}
	return nil
}

// deductStock takes every demand from its mapping. It returns the mapping each
// demand key was deducted from.
func (cs *CheckoutService) deductStock(ctx context.Context, demands []*demand) (map[string]string, []Effect, error) {
	deductedFrom := make(map[string]string, len(demands))
	var deducted []string
	touched := make(map[string]bool)
	var effects []Effect

	for _, d := range demands {
		target := d.mapping
		if target == nil {
			cs.logger.Warn("Product has no default mapping, stock not deducted",
				gecho.Field("product_id", d.product.ID),
				gecho.Field("quantity", d.requested),
			)
			continue
		}

		if err := cs.deductMapping(ctx, target, d.requested, d.label); err != nil {
			cs.logger.Error("Stock deduction failed partway, deducted mappings were not restored",
				gecho.Field("failed_mapping", target.ID),
				gecho.Field("deducted_mappings", deducted),
				gecho.Field("error", err),
			)
			return nil, effects, &DeductionError{Deducted: deducted, Failed: target.ID, Err: err}
		}

		deducted = append(deducted, target.ID)
		deductedFrom[d.key] = target.ID
		if !touched[target.ProductID] {
			touched[target.ProductID] = true
			effects = append(effects, RecomputeStock(target.ProductID), InvalidateVariants(target.ProductID))
		}
	}

	return deductedFrom, effects, nil
}

// deductMapping lowers the quantity with a compare-and-swap on version. A lost
// race re-reads the mapping and checks the stock again.
func (cs *CheckoutService) deductMapping(ctx context.Context, m *tables.VariantMapping, requested int, label string) error {
	current := *m
	attempts := 1 + max(0, cs.cfg.Stock.DeductionRetries)

	for attempt := 1; ; attempt++ {
		remaining := max(0, MappingStock(current)-requested)
		n, err := cs.stores.Mappings.UpdateWhere(ctx, database.And(
			database.Equals("id", current.ID),
			database.Equals("version", current.Version),
		), map[string]any{
			"quantity":   remaining,
			"version":    current.Version + 1,
			"updated_at": time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if n > 0 {
			cs.logger.Debug("Stock deducted",
				gecho.Field("mapping_id", current.ID),
				gecho.Field("requested", requested),
				gecho.Field("remaining", remaining),
			)
			return nil
		}

		if attempt >= attempts {
			return lib.NewConflictError(fmt.Sprintf("%s: stock changed during checkout, please try again", label))
		}

		fresh, err := cs.stores.Mappings.FindByID(ctx, current.ID)
		if err != nil {
			return err
		}
		if !fresh.IsActive {
			return lib.NewStockError([]string{label + ": variant no longer available"})
		}
		if available := MappingStock(*fresh); available < requested {
			return lib.NewStockError([]string{fmt.Sprintf("%s: requested %d, available %d", label, requested, available)})
		}
		current = *fresh
	}
}

func (cs *CheckoutService) buildOrder(req *CheckoutRequest, lines []checkoutLine) (*tables.Order, error) {
	orderNumber, err := lib.GenerateOrderNumber(cs.cfg.Checkout.OrderNumberPrefix)
	if err != nil {
		return nil, err
	}

	items := make([]tables.CartItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		item := tables.CartItem{
			ProductID:    line.product.ID,
			ProductTitle: line.product.Title,
			Quantity:     line.quantity,
		}

		if line.mapping != nil {
			var variantPrice *decimal.Decimal
			if line.mapping.Variant != nil {
				variantPrice = &line.mapping.Variant.Price
				item.Variant = &tables.CartItemVariant{
					ID:   line.mapping.Variant.ID,
					Name: line.mapping.Variant.Name,
					SKU:  line.mapping.Variant.SKU,
				}
			}
			item.PriceAtPurchase = lib.EffectivePrice(line.mapping.PriceOverride, variantPrice)
			item.MappingID = line.mapping.ID
		} else {
			item.PriceAtPurchase = lib.EffectivePrice(line.product.DiscountedPrice, &line.product.OriginalPrice)
			if line.target != nil {
				item.MappingID = line.target.ID
			}
		}

		total = total.Add(lib.LineTotal(item.PriceAtPurchase, item.Quantity))
		items = append(items, item)
	}

	now := time.Now().UTC()
	return &tables.Order{
		ID:          uuid.NewString(),
		OrderNumber: orderNumber,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Note:        req.Note,
		CartItems:   items,
		TotalAmount: total,
		Status:      tables.OrderStatusPending,
		OrderDate:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// seal returns a copy of order with customer data encrypted when a key is configured.
func (cs *CheckoutService) seal(order *tables.Order) (*tables.Order, error) {
	sealed := *order
	key := cs.cfg.Encryption.Key
	if key == "" {
		return &sealed, nil
	}

	for _, field := range []*string{&sealed.Name, &sealed.Email, &sealed.Phone, &sealed.Address, &sealed.Note} {
		encrypted, err := lib.Encrypt(*field, key)
		if err != nil {
			cs.logger.Error("Failed to encrypt customer data", gecho.Field("error", err))
			return nil, err
		}
		*field = encrypted
	}
	return &sealed, nil
}

func (cs *CheckoutService) orderWriteFailed(deductedFrom map[string]string, err error) error {
	deducted := make([]string, 0, len(deductedFrom))
	for _, id := range deductedFrom {
		deducted = append(deducted, id)
	}
	sort.Strings(deducted)

	cs.logger.Error("Order could not be saved after stock was deducted",
		gecho.Field("deducted_mappings", deducted),
		gecho.Field("error", err),
	)
	CheckoutOutcomes.WithLabelValues("order_failed").Inc()
	return &DeductionError{Deducted: deducted, Err: err}
}

func (cs *CheckoutService) notify(order *tables.Order) {
	if cs.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := cs.notifier.OrderPlaced(ctx, order); err != nil {
			cs.logger.Warn("Failed to send order notification",
				gecho.Field("order_number", order.OrderNumber),
				gecho.Field("error", err),
			)
		}
	}()
}

// RestoreStock adds every line's quantity back to the mapping it was taken
// from. Lines without a recorded mapping are skipped.
func (cs *CheckoutService) RestoreStock(ctx context.Context, order *tables.Order) ([]Effect, error) {
	var effects []Effect
	touched := make(map[string]bool)
	var errs []error

	for _, item := range order.CartItems {
		if item.MappingID == "" {
			continue
		}
		productID, err := cs.restoreMapping(ctx, item.MappingID, item.Quantity)
		if err != nil {
			cs.logger.Error("Failed to restore stock",
				gecho.Field("order_id", order.ID),
				gecho.Field("mapping_id", item.MappingID),
				gecho.Field("quantity", item.Quantity),
				gecho.Field("error", err),
			)
			errs = append(errs, fmt.Errorf("mapping %s: %w", item.MappingID, err))
			continue
		}
		if !touched[productID] {
			touched[productID] = true
			effects = append(effects, RecomputeStock(productID), InvalidateVariants(productID))
		}
	}

	return effects, errors.Join(errs...)
}

func (cs *CheckoutService) restoreMapping(ctx context.Context, mappingID string, quantity int) (string, error) {
	attempts := 1 + max(0, cs.cfg.Stock.DeductionRetries)
	for attempt := 1; attempt <= attempts; attempt++ {
		current, err := cs.stores.Mappings.FindByID(ctx, mappingID)
		if err != nil {
			return "", err
		}

		n, err := cs.stores.Mappings.UpdateWhere(ctx, database.And(
			database.Equals("id", current.ID),
			database.Equals("version", current.Version),
		), map[string]any{
			"quantity":   MappingStock(*current) + quantity,
			"version":    current.Version + 1,
			"updated_at": time.Now().UTC(),
		})
		if err != nil {
			return "", err
		}
		if n > 0 {
			return current.ProductID, nil
		}
	}
	return "", lib.NewConflictError("mapping changed while restoring stock")
}
