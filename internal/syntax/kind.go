package syntax

// Kind identifies a syntax construct. Its String form is the construct tag
// written into region records, so names follow Clang's AST class names.
type Kind int

const (
	KindInvalid Kind = iota

	// Declarations
	KindTranslationUnitDecl
	KindFunctionDecl
	KindVarDecl
	KindParmVarDecl
	KindTypedefDecl
	KindRecordDecl
	KindEnumDecl
	KindFieldDecl
	KindEnumConstantDecl

	// Statements
	KindCompoundStmt
	KindDeclStmt
	KindIfStmt
	KindForStmt
	KindWhileStmt
	KindDoStmt
	KindSwitchStmt
	KindCaseStmt
	KindDefaultStmt
	KindLabelStmt
	KindGotoStmt
	KindReturnStmt
	KindBreakStmt
	KindContinueStmt
	KindNullStmt
	KindGCCAsmStmt
	KindOpaqueStmt

	// Expressions
	KindDeclRefExpr
	KindBinaryOperator
	KindCallExpr
	KindConstantExpr
	KindUnaryOperator
	KindArraySubscriptExpr
	KindMemberExpr
	KindParenExpr
	KindCStyleCastExpr
	KindImplicitCastExpr
	KindConditionalOperator
	KindUnaryExprOrTypeTraitExpr
	KindIntegerLiteral
	KindFloatingLiteral
	KindCharacterLiteral
	KindStringLiteral
	KindInitListExpr
	KindDesignatedInitExpr
	KindCompoundLiteralExpr
	KindOffsetOfExpr
	KindStmtExpr
	KindChooseExpr
	KindVAArgExpr
	KindGenericSelectionExpr
	KindRecoveryExpr
	KindCXXConstructExpr
	KindCXXDefaultArgExpr
	KindCXXFoldExpr
	KindCXXInheritedCtorInitExpr
	KindCXXNewExpr
	KindCXXPseudoDestructorExpr
	KindCXXScalarValueInitExpr
	KindCXXTypeidExpr
	KindLambdaExpr
	KindMaterializeTemporaryExpr
	KindOpaqueValueExpr
	KindPseudoObjectExpr

	kindCount
)

var kindNames = [...]string{
	KindInvalid:                  "Invalid",
	KindTranslationUnitDecl:      "TranslationUnitDecl",
	KindFunctionDecl:             "FunctionDecl",
	KindVarDecl:                  "VarDecl",
	KindParmVarDecl:              "ParmVarDecl",
	KindTypedefDecl:              "TypedefDecl",
	KindRecordDecl:               "RecordDecl",
	KindEnumDecl:                 "EnumDecl",
	KindFieldDecl:                "FieldDecl",
	KindEnumConstantDecl:         "EnumConstantDecl",
	KindCompoundStmt:             "CompoundStmt",
	KindDeclStmt:                 "DeclStmt",
	KindIfStmt:                   "IfStmt",
	KindForStmt:                  "ForStmt",
	KindWhileStmt:                "WhileStmt",
	KindDoStmt:                   "DoStmt",
	KindSwitchStmt:               "SwitchStmt",
	KindCaseStmt:                 "CaseStmt",
	KindDefaultStmt:              "DefaultStmt",
	KindLabelStmt:                "LabelStmt",
	KindGotoStmt:                 "GotoStmt",
	KindReturnStmt:               "ReturnStmt",
	KindBreakStmt:                "BreakStmt",
	KindContinueStmt:             "ContinueStmt",
	KindNullStmt:                 "NullStmt",
	KindGCCAsmStmt:               "GCCAsmStmt",
	KindOpaqueStmt:               "OpaqueStmt",
	KindDeclRefExpr:              "DeclRefExpr",
	KindBinaryOperator:           "BinaryOperator",
	KindCallExpr:                 "CallExpr",
	KindConstantExpr:             "ConstantExpr",
	KindUnaryOperator:            "UnaryOperator",
	KindArraySubscriptExpr:       "ArraySubscriptExpr",
	KindMemberExpr:               "MemberExpr",
	KindParenExpr:                "ParenExpr",
	KindCStyleCastExpr:           "CStyleCastExpr",
	KindImplicitCastExpr:         "ImplicitCastExpr",
	KindConditionalOperator:      "ConditionalOperator",
	KindUnaryExprOrTypeTraitExpr: "UnaryExprOrTypeTraitExpr",
	KindIntegerLiteral:           "IntegerLiteral",
	KindFloatingLiteral:          "FloatingLiteral",
	KindCharacterLiteral:         "CharacterLiteral",
	KindStringLiteral:            "StringLiteral",
	KindInitListExpr:             "InitListExpr",
	KindDesignatedInitExpr:       "DesignatedInitExpr",
	KindCompoundLiteralExpr:      "CompoundLiteralExpr",
	KindOffsetOfExpr:             "OffsetOfExpr",
	KindStmtExpr:                 "StmtExpr",
	KindChooseExpr:               "ChooseExpr",
	KindVAArgExpr:                "VAArgExpr",
	KindGenericSelectionExpr:     "GenericSelectionExpr",
	KindRecoveryExpr:             "RecoveryExpr",
	KindCXXConstructExpr:         "CXXConstructExpr",
	KindCXXDefaultArgExpr:        "CXXDefaultArgExpr",
	KindCXXFoldExpr:              "CXXFoldExpr",
	KindCXXInheritedCtorInitExpr: "CXXInheritedCtorInitExpr",
	KindCXXNewExpr:               "CXXNewExpr",
	KindCXXPseudoDestructorExpr:  "CXXPseudoDestructorExpr",
	KindCXXScalarValueInitExpr:   "CXXScalarValueInitExpr",
	KindCXXTypeidExpr:            "CXXTypeidExpr",
	KindLambdaExpr:               "LambdaExpr",
	KindMaterializeTemporaryExpr: "MaterializeTemporaryExpr",
	KindOpaqueValueExpr:          "OpaqueValueExpr",
	KindPseudoObjectExpr:         "PseudoObjectExpr",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "Invalid"
	}
	return kindNames[k]
}

// IsDecl reports whether k names a declaration
func (k Kind) IsDecl() bool {
	return k >= KindTranslationUnitDecl && k <= KindEnumConstantDecl
}

// IsStmt reports whether k names a statement. Expressions are statements too.
func (k Kind) IsStmt() bool {
	return k >= KindCompoundStmt && k < kindCount
}

// IsExpr reports whether k names an expression
func (k Kind) IsExpr() bool {
	return k >= KindDeclRefExpr && k < kindCount
}

// KindByName looks a kind up by its tag
func KindByName(name string) (Kind, bool) {
	for k := KindTranslationUnitDecl; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return KindInvalid, false
}
