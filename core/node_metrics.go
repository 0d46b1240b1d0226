package core

import (
	"strconv"

	"tastefun/core/events"
	"tastefun/native/ideas"
	"tastefun/native/market"
)

// recordEventMetrics derives market metrics from a committed event.
func (n *Node) recordEventMetrics(evt events.Event) {
	m := n.metrics
	switch e := evt.(type) {
	case market.TokensSwapped:
		side := "sell"
		if e.IsBuy {
			side = "buy"
		}
		m.RecordSwap(side, e.BaseAmount, e.TokenAmount)
		m.RecordRoundingDust("trade_fee", e.Fee.Dust)
	case market.BuybackExecuted:
		m.RecordBuyback(e.Result.TokensBurned + e.Result.SettlementTokensBurned)
	case ideas.VoteCast:
		choice := "reject_all"
		if e.Choice != ideas.RejectAll {
			choice = strconv.Itoa(int(e.Choice))
		}
		m.RecordVote(choice)
	case ideas.VotingSettled:
		m.RecordSettlement("completed")
	case ideas.VotingCancelled:
		m.RecordSettlement(e.Reason)
	case ideas.WinningsWithdrawn:
		m.RecordWithdrawal("winnings")
	case ideas.RefundWithdrawn:
		m.RecordWithdrawal("refund")
	case ideas.SponsorRefundWithdrawn:
		m.RecordWithdrawal("sponsor_refund")
	case ideas.ResidualSwept:
		m.RecordRoundingDust("settlement_residual", e.Amount)
	}
}
