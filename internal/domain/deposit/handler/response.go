package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/mapping"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/repository"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/service"
)

type suggestionDTO struct {
	TargetID string  `json:"targetId"`
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
}

type matchDTO struct {
	Source          string `json:"source"`
	TemplateMapName string `json:"templateMapName,omitempty"`
	TemplateID      string `json:"templateId,omitempty"`
	Origin          string `json:"origin,omitempty"`
	Company         string `json:"company,omitempty"`
}

type analyzeResponse struct {
	UploadID    string                     `json:"uploadId,omitempty"`
	Headers     []string                   `json:"headers"`
	PreviewRows [][]string                 `json:"previewRows"`
	RowCount    int                        `json:"rowCount"`
	Mapping     *mapping.Config            `json:"mapping"`
	Suggestions map[string][]suggestionDTO `json:"suggestions"`
	Match       *matchDTO                  `json:"match,omitempty"`
}

func newAnalyzeResponse(result *service.AnalyzeResult) analyzeResponse {
	resp := analyzeResponse{
		Headers:     result.Headers,
		PreviewRows: result.PreviewRows,
		RowCount:    result.RowCount,
		Mapping:     result.Mapping,
		Suggestions: make(map[string][]suggestionDTO, len(result.Suggestions)),
	}
	if result.UploadID != uuid.Nil {
		resp.UploadID = result.UploadID.String()
	}
	for headerName, matches := range result.Suggestions {
		dtos := make([]suggestionDTO, 0, len(matches))
		for _, m := range matches {
			dtos = append(dtos, suggestionDTO{
				TargetID: m.Target.ID,
				Label:    m.Target.Label,
				Score:    m.Score,
			})
		}
		resp.Suggestions[headerName] = dtos
	}
	if result.Match != nil {
		resp.Match = &matchDTO{
			Source:          result.Match.Source,
			TemplateMapName: result.Match.TemplateMapName,
			TemplateID:      result.Match.TemplateID,
			Origin:          result.Match.Origin,
			Company:         result.Match.Company,
		}
	}
	return resp
}

type lineItemDTO struct {
	Usage          string            `json:"usage"`
	Commission     string            `json:"commission"`
	CommissionRate string            `json:"commissionRate"`
	AccountNumber  string            `json:"accountNumber,omitempty"`
	CustomerName   string            `json:"customerName,omitempty"`
	InvoiceDate    *string           `json:"invoiceDate,omitempty"`
	ProductName    string            `json:"productName,omitempty"`
	OrderNumber    string            `json:"orderNumber,omitempty"`
	Description    string            `json:"description,omitempty"`
	Additional     map[string]string `json:"additional,omitempty"`
}

type applyResponse struct {
	UploadID        string        `json:"uploadId,omitempty"`
	Items           []lineItemDTO `json:"items"`
	TotalUsage      string        `json:"totalUsage"`
	TotalCommission string        `json:"totalCommission"`
	RowsSkipped     int           `json:"rowsSkipped"`
	RowErrors       []string      `json:"rowErrors,omitempty"`
}

func newApplyResponse(result *service.ApplyResult) applyResponse {
	resp := applyResponse{
		Items:           make([]lineItemDTO, 0, len(result.Items)),
		TotalUsage:      result.TotalUsage.String(),
		TotalCommission: result.TotalCommission.String(),
		RowsSkipped:     result.RowsSkipped,
		RowErrors:       result.RowErrors,
	}
	if result.UploadID != uuid.Nil {
		resp.UploadID = result.UploadID.String()
	}
	for _, item := range result.Items {
		dto := lineItemDTO{
			Usage:          item.Usage.String(),
			Commission:     item.Commission.String(),
			CommissionRate: item.CommissionRate.String(),
			AccountNumber:  item.AccountNumber,
			CustomerName:   item.CustomerName,
			ProductName:    item.ProductName,
			OrderNumber:    item.OrderNumber,
			Description:    item.Description,
			Additional:     item.Additional,
		}
		if item.InvoiceDate != nil {
			formatted := item.InvoiceDate.Format(time.RFC3339)
			dto.InvoiceDate = &formatted
		}
		resp.Items = append(resp.Items, dto)
	}
	return resp
}

type templateDTO struct {
	ID              string `json:"id"`
	DistributorName string `json:"distributorName"`
	VendorName      string `json:"vendorName"`
	TemplateMapName string `json:"templateMapName,omitempty"`
	UpdatedAt       string `json:"updatedAt"`
}

func newTemplateDTO(tpl *repository.DepositTemplate) templateDTO {
	dto := templateDTO{
		ID:              tpl.ID.String(),
		DistributorName: tpl.DistributorName,
		VendorName:      tpl.VendorName,
		UpdatedAt:       tpl.UpdatedAt.Format(time.RFC3339),
	}
	if tpl.TemplateMapName != nil {
		dto.TemplateMapName = *tpl.TemplateMapName
	}
	return dto
}

type templateListResponse struct {
	Templates []templateDTO `json:"templates"`
}

func newTemplateListResponse(templates []*repository.DepositTemplate) templateListResponse {
	resp := templateListResponse{Templates: make([]templateDTO, 0, len(templates))}
	for _, tpl := range templates {
		resp.Templates = append(resp.Templates, newTemplateDTO(tpl))
	}
	return resp
}

type templateDetailResponse struct {
	templateDTO
	Mapping *mapping.Config `json:"mapping"`
}

func newTemplateDetailResponse(tpl *repository.DepositTemplate, cfg *mapping.Config) templateDetailResponse {
	return templateDetailResponse{templateDTO: newTemplateDTO(tpl), Mapping: cfg}
}
