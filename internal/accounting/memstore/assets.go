package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/assets"
)

// Assets returns the fixed asset repository.
func (s *Store) Assets() assets.Repository {
	return assetRepo{s}
}

type assetRepo struct {
	s *Store
}

func (r assetRepo) Get(ctx context.Context, tenantID uuid.UUID, id int64) (assets.Asset, error) {
	var out assets.Asset
	err := r.s.read(ctx, func(t *tx) error {
		var err error
		out, err = assetTx{t}.GetForUpdate(ctx, tenantID, id)
		return err
	})
	return out, err
}

func (r assetRepo) List(ctx context.Context, tenantID uuid.UUID, filter assets.ListFilter) ([]assets.Asset, error) {
	var out []assets.Asset
	err := r.s.read(ctx, func(t *tx) error {
		for _, a := range t.st.assets {
			if a.TenantID == tenantID && (filter.Status == "" || a.Status == filter.Status) {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, err
}

func (r assetRepo) Depreciations(ctx context.Context, tenantID uuid.UUID, assetID int64) ([]assets.Depreciation, error) {
	var out []assets.Depreciation
	err := r.s.read(ctx, func(t *tx) error {
		if a, ok := t.st.assets[assetID]; !ok || a.TenantID != tenantID {
			return nil
		}
		for _, d := range t.st.depreciations {
			if d.AssetID == assetID {
				out = append(out, d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, err
}

func (r assetRepo) WithTx(ctx context.Context, fn func(context.Context, assets.TxRepository) error) error {
	return r.s.withTx(ctx, func(t *tx) error {
		return fn(ctx, assetTx{t})
	})
}

type assetTx struct {
	t *tx
}

func (a assetTx) Journals() journals.TxRepository { return journalTx{a.t} }

func (a assetTx) Mappings() mappings.TxRepository { return mappingTx{a.t} }

func (a assetTx) NextNumber(_ context.Context, tenantID uuid.UUID, year int) (string, error) {
	return assets.FormatNumber(year, a.t.nextSequence(tenantID, "asset", year)), nil
}

func (a assetTx) Insert(_ context.Context, asset assets.Asset) (assets.Asset, error) {
	if err := a.t.fault("assets.Insert"); err != nil {
		return assets.Asset{}, err
	}
	for _, existing := range a.t.st.assets {
		if existing.TenantID == asset.TenantID && existing.Number == asset.Number {
			return assets.Asset{}, shared.Concurrent("asset", asset.Number, "number allocated twice")
		}
	}
	now := a.t.now()
	asset.ID = a.t.st.nextID("fixed_assets")
	asset.CreatedAt, asset.UpdatedAt = now, now
	a.t.st.assets[asset.ID] = asset
	return asset, nil
}

func (a assetTx) GetForUpdate(_ context.Context, tenantID uuid.UUID, id int64) (assets.Asset, error) {
	asset, ok := a.t.st.assets[id]
	if !ok || asset.TenantID != tenantID {
		return assets.Asset{}, shared.NotFound("asset", id)
	}
	return asset, nil
}

func (a assetTx) Update(_ context.Context, asset assets.Asset) error {
	if err := a.t.fault("assets.Update"); err != nil {
		return err
	}
	current, ok := a.t.st.assets[asset.ID]
	if !ok || current.TenantID != asset.TenantID {
		return shared.NotFound("asset", asset.ID)
	}
	if !asset.BookValue.Equal(asset.PurchasePrice.Sub(asset.AccumulatedDepreciation)) {
		return shared.Invalid("asset", asset.Number, shared.ErrInvalidInput, "book value check violated")
	}
	current.AccumulatedDepreciation = asset.AccumulatedDepreciation
	current.BookValue = asset.BookValue
	current.Status = asset.Status
	current.DisposalDate = asset.DisposalDate
	current.DisposalAmount = asset.DisposalAmount
	current.DisposalJournalID = asset.DisposalJournalID
	current.UpdatedAt = a.t.now()
	a.t.st.assets[asset.ID] = current
	return nil
}

func (a assetTx) InsertDepreciation(ctx context.Context, d assets.Depreciation) (assets.Depreciation, error) {
	if err := a.t.fault("assets.InsertDepreciation"); err != nil {
		return assets.Depreciation{}, err
	}
	if _, found, _ := a.FindDepreciation(ctx, d.AssetID, d.Key()); found {
		return assets.Depreciation{}, shared.Invalid("asset", d.AssetID, shared.ErrDepreciationExists, "%s", d.Key().String())
	}
	d.ID = a.t.st.nextID("depreciations")
	d.CreatedAt = a.t.now()
	a.t.st.depreciations[d.ID] = d
	return d, nil
}

func (a assetTx) FindDepreciation(_ context.Context, assetID int64, key periods.Key) (assets.Depreciation, bool, error) {
	for _, d := range a.t.st.depreciations {
		if d.AssetID == assetID && d.Key() == key {
			return d, true, nil
		}
	}
	return assets.Depreciation{}, false, nil
}

func (a assetTx) LatestDepreciation(_ context.Context, assetID int64) (assets.Depreciation, bool, error) {
	var (
		latest assets.Depreciation
		found  bool
	)
	for _, d := range a.t.st.depreciations {
		if d.AssetID != assetID {
			continue
		}
		if !found || d.Year > latest.Year || (d.Year == latest.Year && d.Month > latest.Month) {
			latest, found = d, true
		}
	}
	return latest, found, nil
}

func (a assetTx) CountDepreciations(_ context.Context, assetID int64) (int, error) {
	n := 0
	for _, d := range a.t.st.depreciations {
		if d.AssetID == assetID {
			n++
		}
	}
	return n, nil
}
