package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/farxc/presupuestos-estudio/internal/money"
	"github.com/shopspring/decimal"
)

const (
	TableBudgets         = "presupuestos"
	TableItems           = "presupuesto_items"
	TableCollections     = "cobros_proyecto"
	TableExpenses        = "gastos_proyecto"
	TableFixedExpenses   = "gastos_fijos_mensuales"
	TablePayments        = "pagos_gastos_fijos"
	TableProfiles        = "perfiles"
	TableRolePermissions = "rol_permisos"
)

const (
	ProcDashboardByClient = "get_dashboard_agrupado_por_cliente"
	ProcCashBalance       = "calcular_saldo_caja_actual"
	ProcProjectBalances   = "get_saldos_totales_proyectos_en_curso"
	ProcFixedSpendHistory = "get_gastos_fijos_ultimos_12_meses"
)

// Budget represents the 'presupuestos' table. A nil ParentID marks a
// principal project; otherwise the row is an additional under ParentID.
type Budget struct {
	ID          int64           `db:"id" json:"id"`
	Client      string          `db:"cliente" json:"cliente"`
	Description *string         `db:"descripcion" json:"descripcion"`
	Phone       *string         `db:"telefono" json:"telefono"`
	Email       *string         `db:"mail" json:"mail"`
	Address     *string         `db:"direccion" json:"direccion"`
	Margin      decimal.Decimal `db:"margen_ganancia" json:"margen_ganancia"`
	Status      BudgetStatus    `db:"estado" json:"estado"`
	ParentID    *int64          `db:"presupuesto_padre_id" json:"presupuesto_padre_id"`
	Date        time.Time       `db:"fecha" json:"fecha"`
	Progress    *int            `db:"avance_manual" json:"avance_manual"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

func (b *Budget) IsPrincipal() bool { return b.ParentID == nil }

// Item represents the 'presupuesto_items' table.
type Item struct {
	ID                int64           `db:"id" json:"id"`
	BudgetID          int64           `db:"presupuesto_id" json:"presupuesto_id"`
	Description       string          `db:"descripcion" json:"descripcion"`
	Category          *string         `db:"categoria" json:"categoria"`
	Cost              decimal.Decimal `db:"costo" json:"costo"`
	Currency          money.Currency  `db:"moneda" json:"moneda"`
	ClientDescription *string         `db:"descripcion_cliente" json:"descripcion_cliente"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// Collection represents the 'cobros_proyecto' table: money received from the client.
type Collection struct {
	ID          int64           `db:"id" json:"id"`
	BudgetID    int64           `db:"presupuesto_id" json:"presupuesto_id"`
	Description *string         `db:"descripcion" json:"descripcion"`
	Amount      decimal.Decimal `db:"monto" json:"monto"`
	Date        time.Time       `db:"fecha" json:"fecha"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Expense represents the 'gastos_proyecto' table. Category "presupuesto"
// marks spending that was part of the quote; anything else is an extra.
type Expense struct {
	ID          int64           `db:"id" json:"id"`
	BudgetID    int64           `db:"presupuesto_id" json:"presupuesto_id"`
	Category    string          `db:"categoria" json:"categoria"`
	Description *string         `db:"descripcion" json:"descripcion"`
	Amount      decimal.Decimal `db:"monto" json:"monto"`
	Date        time.Time       `db:"fecha" json:"fecha"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

const ExpenseCategoryBudgeted = "presupuesto"

// FixedExpense represents the 'gastos_fijos_mensuales' table.
type FixedExpense struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"nombre" json:"nombre"`
	Active bool   `db:"activo" json:"activo"`
}

// FixedExpensePayment represents the 'pagos_gastos_fijos' table.
type FixedExpensePayment struct {
	ID             int64           `db:"id" json:"id"`
	FixedExpenseID int64           `db:"gasto_fijo_id" json:"gasto_fijo_id"`
	Amount         decimal.Decimal `db:"monto_pagado" json:"monto_pagado"`
	PaidAt         time.Time       `db:"fecha_pago" json:"fecha_pago"`
	Month          int             `db:"mes" json:"mes"`
	Year           int             `db:"anio" json:"anio"`
	Note           *string         `db:"descripcion_adicional" json:"descripcion_adicional"`
}

type Profile struct {
	ID     string `db:"id" json:"id"`
	RoleID *int64 `db:"rol_id" json:"rol_id"`
}

type RolePermission struct {
	RoleID     int64  `db:"rol_id" json:"rol_id"`
	Permission string `db:"permiso" json:"permiso"`
}

// SubProject is one additional inside a dashboard group.
type SubProject struct {
	ID          int64           `json:"id"`
	Description string          `json:"descripcion"`
	Price       decimal.Decimal `json:"precio"`
	Status      BudgetStatus    `json:"estado"`
}

// SubProjects scans the json column produced by the dashboard procedure.
type SubProjects []SubProject

func (s *SubProjects) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]SubProject)(s))
	case string:
		return json.Unmarshal([]byte(v), (*[]SubProject)(s))
	default:
		return fmt.Errorf("cannot scan %T into SubProjects", src)
	}
}

// ClientGroup is a row of get_dashboard_agrupado_por_cliente.
type ClientGroup struct {
	Client               string          `db:"cliente" json:"cliente"`
	PrincipalID          int64           `db:"proyecto_principal_id" json:"proyecto_principal_id"`
	PrincipalDescription *string         `db:"descripcion_principal" json:"descripcion_principal"`
	TotalPrice           decimal.Decimal `db:"precio_total" json:"precio_total"`
	TotalCollected       decimal.Decimal `db:"cobrado_total" json:"cobrado_total"`
	TotalSpent           decimal.Decimal `db:"gastado_total" json:"gastado_total"`
	Progress             *int            `db:"avance_manual" json:"avance_manual"`
	SubProjects          SubProjects     `db:"sub_proyectos" json:"sub_proyectos"`
	Receivable           decimal.Decimal `db:"saldo_a_cobrar" json:"saldo_a_cobrar"`
	Payable              decimal.Decimal `db:"saldo_a_pagar" json:"saldo_a_pagar"`
}

// ProjectBalances is the single row of get_saldos_totales_proyectos_en_curso.
type ProjectBalances struct {
	TotalReceivable decimal.Decimal `db:"total_saldo_a_cobrar" json:"total_saldo_a_cobrar"`
	TotalPayable    decimal.Decimal `db:"total_saldo_a_pagar" json:"total_saldo_a_pagar"`
}

// MonthlyFixedSpend is a row of get_gastos_fijos_ultimos_12_meses.
type MonthlyFixedSpend struct {
	Month string          `db:"mes_formateado" json:"mes_formateado"`
	Total decimal.Decimal `db:"total_gastado" json:"total_gastado"`
}
