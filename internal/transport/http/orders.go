package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type productResponse struct {
	Message string          `json:"message"`
	Product *domain.Product `json:"product"`
}

type reserveResponse struct {
	Success     bool      `json:"success"`
	OrderID     uuid.UUID `json:"orderId"`
	BarcodeText string    `json:"barcodeText"`
}

func productList(products []domain.Product) map[string][]domain.Product {
	if products == nil {
		products = []domain.Product{}
	}
	return map[string][]domain.Product{"products": products}
}

func orderList(orders []domain.Order) map[string][]domain.Order {
	if orders == nil {
		orders = []domain.Order{}
	}
	return map[string][]domain.Order{"orders": orders}
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listProducts"

	products, err := s.svc.Orders.Products(r.Context(), 0)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, productList(products))
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.createProduct"

	var req createProductRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	p, err := s.svc.Orders.CreateProduct(r.Context(), vendorFromContext(r.Context()), service.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, productResponse{Message: "Product added successfully", Product: p})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.deleteProduct"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	p, err := s.svc.Orders.DeleteProduct(r.Context(), vendorFromContext(r.Context()), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, productResponse{Message: "Product soft-deleted successfully", Product: p})
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.searchProducts"

	q := r.URL.Query()
	term := q.Get("query")
	if term == "" {
		term = q.Get("q")
	}

	products, err := s.svc.Orders.Search(r.Context(), term)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, productList(products))
}

func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.createVendor"

	var req createVendorRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	v, err := s.svc.Orders.CreateVendor(r.Context(), service.NewVendor{Name: req.Name, Email: req.Email})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]*domain.Vendor{"vendor": v})
}

func (s *Server) vendorByName(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.vendorByName"

	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		s.handleServiceError(w, r, op, &apperrors.ValidationError{Field: "name", Rule: "required"})
		return
	}

	v, err := s.svc.Orders.VendorByName(r.Context(), name)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.Vendor{"vendor": v})
}

func (s *Server) vendorProducts(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.vendorProducts"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	products, err := s.svc.Orders.Products(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, productList(products))
}

// vendorReservations lists a vendor's orders. A vendor may only read its own.
func (s *Server) vendorReservations(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.vendorReservations"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if id != vendorFromContext(r.Context()) {
		s.handleServiceError(w, r, op, apperrors.ErrForbidden)
		return
	}

	orders, err := s.svc.Orders.VendorReservations(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, orderList(orders))
}

func (s *Server) reserveOrder(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.reserveOrder"

	var req reserveOrderRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	o, err := s.svc.Orders.Reserve(r.Context(), req.order())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, reserveResponse{Success: true, OrderID: o.Ref, BarcodeText: o.Barcode})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getOrder"

	ref, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, op, &apperrors.ValidationError{Field: "id", Rule: "uuid"})
		return
	}

	o, err := s.svc.Orders.GetOrder(r.Context(), ref)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.Order{"order": o})
}

func (s *Server) customerOrders(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.customerOrders"

	customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	if err != nil || customerID <= 0 {
		s.handleServiceError(w, r, op, &apperrors.ValidationError{Field: "customer_id", Rule: "required"})
		return
	}

	orders, err := s.svc.Orders.CustomerOrders(r.Context(), customerID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, orderList(orders))
}
