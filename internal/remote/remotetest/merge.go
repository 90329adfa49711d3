package remotetest

import (
	"fmt"

	"github.com/roach88/brutalist/internal/remote"
)

func unknownColumn(col string) error {
	return fmt.Errorf("column %q is not writable", col)
}

func mergeOrder(dst, src remote.OrderRow, columns []string) (remote.OrderRow, error) {
	if len(columns) == 0 {
		src.ID, src.UserID, src.CreatedAt = dst.ID, dst.UserID, dst.CreatedAt
		return src, nil
	}
	for _, col := range columns {
		switch col {
		case remote.ColClient:
			dst.Client = src.Client
		case remote.ColDeadline:
			dst.Deadline = src.Deadline
		case remote.ColStatus:
			dst.Status = src.Status
		case remote.ColOrigin:
			dst.Origin = src.Origin
		case remote.ColShippingCost:
			dst.ShippingCost = src.ShippingCost
		case remote.ColTotalValue:
			dst.TotalValue = src.TotalValue
		case remote.ColItems:
			dst.Items = src.Items
		default:
			return dst, unknownColumn(col)
		}
	}
	return dst, nil
}

func mergeProduct(dst, src remote.ProductRow, columns []string) (remote.ProductRow, error) {
	if len(columns) == 0 {
		src.ID, src.UserID, src.CreatedAt = dst.ID, dst.UserID, dst.CreatedAt
		return src, nil
	}
	for _, col := range columns {
		switch col {
		case remote.ColName:
			dst.Name = src.Name
		case remote.ColSKU:
			dst.SKU = src.SKU
		case remote.ColMaterials:
			dst.Materials = src.Materials
		case remote.ColCost:
			dst.Cost = src.Cost
		case remote.ColStock:
			dst.Stock = src.Stock
		case remote.ColImage:
			dst.Image = src.Image
		default:
			return dst, unknownColumn(col)
		}
	}
	return dst, nil
}

func mergeMaterial(dst, src remote.MaterialRow, columns []string) (remote.MaterialRow, error) {
	if len(columns) == 0 {
		src.ID, src.UserID, src.CreatedAt = dst.ID, dst.UserID, dst.CreatedAt
		return src, nil
	}
	for _, col := range columns {
		switch col {
		case remote.ColName:
			dst.Name = src.Name
		case remote.ColUnit:
			dst.Unit = src.Unit
		case remote.ColCostPerUnit:
			dst.CostPerUnit = src.CostPerUnit
		case remote.ColStock:
			dst.Stock = src.Stock
		case remote.ColMinStock:
			dst.MinStock = src.MinStock
		default:
			return dst, unknownColumn(col)
		}
	}
	return dst, nil
}
